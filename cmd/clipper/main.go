package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kobohq/kobo-clipper/internal/config"
	"github.com/kobohq/kobo-clipper/internal/handler/message"
	"github.com/kobohq/kobo-clipper/internal/model/pin"
	"github.com/kobohq/kobo-clipper/internal/observer"
	"github.com/kobohq/kobo-clipper/internal/observer/browserdom"
	"github.com/kobohq/kobo-clipper/internal/protocol"
)

const usage = `Usage: clipper <command> [arguments]

Commands:
  login     sign in to Kobo (prompts for credentials)
  logout    clear the saved session
  status    show the current session
  stats     show saved-today and board counts
  boards    list your boards
  search    search remote items: clipper search [-type all|styles|components|suppliers] <query>
  watch     observe a page for clippable images: clipper watch <url>
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if os.Getenv("CLIPPER_DEBUG") == "" {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	client := protocol.NewClient(cfg.Server.DaemonURL)

	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, client, os.Args[2:])
	case "logout":
		err = runLogout(ctx, client)
	case "status":
		err = runStatus(ctx, client)
	case "stats":
		err = runStats(ctx, client)
	case "boards":
		err = runBoards(ctx, client)
	case "search":
		err = runSearch(ctx, client, os.Args[2:])
	case "watch":
		err = runWatch(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func runLogin(ctx context.Context, client *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email (prompted when omitted)")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		*email = strings.TrimSpace(line)
	}
	if *password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		*password = strings.TrimSpace(line)
	}

	raw, err := client.Call(ctx, protocol.ActionAuthenticate, pin.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}

	var result struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decode login result: %w", err)
	}
	fmt.Printf("Signed in as %s <%s>\n", result.Name, result.Email)
	return nil
}

func runLogout(ctx context.Context, client *protocol.Client) error {
	if _, err := client.Call(ctx, protocol.ActionSignOut, nil); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func runStatus(ctx context.Context, client *protocol.Client) error {
	raw, err := client.Call(ctx, protocol.ActionGetSession, nil)
	if err != nil {
		return err
	}

	var view message.SessionView
	if err := json.Unmarshal(raw, &view); err != nil {
		return fmt.Errorf("decode session view: %w", err)
	}
	if !view.SignedIn {
		fmt.Println("Not signed in. Run `clipper login`.")
		return nil
	}

	fmt.Printf("Signed in as %s <%s>\n", view.Name, view.Email)
	fmt.Printf("Tenant: company %d, brand %d\n", view.CompanyID, view.BrandID)
	if !view.CreatedAt.IsZero() {
		fmt.Printf("Since:  %s\n", view.CreatedAt.Format(time.RFC1123))
	}
	return nil
}

func runStats(ctx context.Context, client *protocol.Client) error {
	raw, err := client.Call(ctx, protocol.ActionGetStats, nil)
	if err != nil {
		return err
	}

	var stats pin.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}
	fmt.Printf("Saved today: %d\n", stats.SavedToday)
	fmt.Printf("Boards:      %d\n", stats.TotalBoards)
	return nil
}

func runBoards(ctx context.Context, client *protocol.Client) error {
	raw, err := client.Call(ctx, protocol.ActionListBoards, nil)
	if err != nil {
		return err
	}

	var boards []pin.Board
	if err := json.Unmarshal(raw, &boards); err != nil {
		return fmt.Errorf("decode boards: %w", err)
	}
	if len(boards) == 0 {
		fmt.Println("No boards yet.")
		return nil
	}
	for _, b := range boards {
		fmt.Printf("%8d  %-40s %d pins\n", b.ID, b.Name, b.PinsCount)
	}
	return nil
}

func runSearch(ctx context.Context, client *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	itemType := fs.String("type", "all", "item type: all, styles, components or suppliers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("search needs a query")
	}

	payload := map[string]string{
		"query": strings.Join(fs.Args(), " "),
		"type":  *itemType,
	}
	raw, err := client.Call(ctx, protocol.ActionSearch, payload)
	if err != nil {
		return err
	}

	var pretty map[string]any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	headless := fs.Bool("headless", cfg.Observer.Headless, "run the browser headless")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("watch needs exactly one URL")
	}
	url := fs.Arg(0)

	wsURL := strings.Replace(cfg.Server.DaemonURL, "http", "ws", 1) + "/api/ws"
	conn, err := protocol.Dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	browser, err := browserdom.Launch(*headless)
	if err != nil {
		return err
	}
	defer browser.Close()

	if err := browser.Navigate(url); err != nil {
		return err
	}

	src, err := browserdom.New(browser.Page())
	if err != nil {
		return err
	}
	defer src.Close()

	obs := observer.New(src, observer.NewDaemonSaver(conn), observer.Options{
		MinImageSize: cfg.Observer.MinImageSize,
		SettleDelay:  cfg.Observer.SettleDelay,
		RevertDelay:  cfg.Observer.RevertDelay,
	})

	fmt.Printf("Watching %s - hover an image and hit Save. Ctrl-C to stop.\n", url)
	if err := obs.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
