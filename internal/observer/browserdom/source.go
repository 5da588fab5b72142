// Package browserdom binds the observer core to a live page driven through
// playwright. The page-side half lives in script.go; everything crossing
// back into Go goes through exposed bindings.
package browserdom

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"github.com/kobohq/kobo-clipper/internal/observer"
)

// Source implements observer.DOMSource over one playwright page.
type Source struct {
	page playwright.Page

	added  chan observer.Image
	events chan observer.Event

	mu      sync.Mutex
	onLoads map[string]func(observer.Image)
	closed  bool
}

// New installs the observer script into the page and wires the bindings. A
// page that already carries an injection is detected and only re-armed, with
// stale controls removed first.
func New(page playwright.Page) (*Source, error) {
	s := &Source{
		page:    page,
		added:   make(chan observer.Image, 64),
		events:  make(chan observer.Event, 64),
		onLoads: make(map[string]func(observer.Image)),
	}

	if err := page.ExposeFunction("koboImageAdded", s.bindImageAdded); err != nil {
		return nil, fmt.Errorf("expose image binding: %w", err)
	}
	if err := page.ExposeFunction("koboImageLoaded", s.bindImageLoaded); err != nil {
		return nil, fmt.Errorf("expose load binding: %w", err)
	}
	if err := page.ExposeFunction("koboAffordanceEvent", s.bindAffordanceEvent); err != nil {
		return nil, fmt.Errorf("expose event binding: %w", err)
	}

	fresh, err := page.Evaluate(initScript)
	if err != nil {
		return nil, fmt.Errorf("inject observer script: %w", err)
	}
	if injected, ok := fresh.(bool); ok && !injected {
		log.Debug().Msg("page already carried an injection, re-armed after cleanup")
	}

	return s, nil
}

func decodeRecord(raw any) (observer.Image, error) {
	text, ok := raw.(string)
	if !ok {
		return observer.Image{}, fmt.Errorf("unexpected record type %T", raw)
	}
	var rec struct {
		ID            string `json:"id"`
		Source        string `json:"source"`
		NaturalWidth  int    `json:"naturalWidth"`
		NaturalHeight int    `json:"naturalHeight"`
		Complete      bool   `json:"complete"`
		Alt           string `json:"alt"`
		Title         string `json:"title"`
	}
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return observer.Image{}, fmt.Errorf("decode image record: %w", err)
	}
	return observer.Image{
		ID:            rec.ID,
		Source:        rec.Source,
		NaturalWidth:  rec.NaturalWidth,
		NaturalHeight: rec.NaturalHeight,
		Complete:      rec.Complete,
		Alt:           rec.Alt,
		Title:         rec.Title,
	}, nil
}

func (s *Source) bindImageAdded(args ...any) any {
	if len(args) == 0 {
		return nil
	}
	img, err := decodeRecord(args[0])
	if err != nil {
		log.Warn().Err(err).Msg("dropping malformed image report")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		select {
		case s.added <- img:
		default:
			log.Warn().Str("image", img.Source).Msg("mutation stream full, dropping report")
		}
	}
	return nil
}

func (s *Source) bindImageLoaded(args ...any) any {
	if len(args) == 0 {
		return nil
	}
	img, err := decodeRecord(args[0])
	if err != nil {
		log.Warn().Err(err).Msg("dropping malformed load report")
		return nil
	}

	s.mu.Lock()
	fn := s.onLoads[img.ID]
	delete(s.onLoads, img.ID)
	s.mu.Unlock()
	if fn != nil {
		fn(img)
	}
	return nil
}

func (s *Source) bindAffordanceEvent(args ...any) any {
	if len(args) < 2 {
		return nil
	}
	id, _ := args[0].(string)
	kind, _ := args[1].(string)
	if id == "" || kind == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		select {
		case s.events <- observer.Event{ImageID: id, Kind: observer.EventKind(kind)}:
		default:
		}
	}
	return nil
}

// Snapshot enumerates every image currently in the document.
func (s *Source) Snapshot() []observer.Image {
	result, err := s.page.Evaluate(collectScript)
	if err != nil {
		log.Warn().Err(err).Msg("snapshot failed")
		return nil
	}

	records, ok := result.([]any)
	if !ok {
		return nil
	}

	images := make([]observer.Image, 0, len(records))
	for _, raw := range records {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		images = append(images, observer.Image{
			ID:            asString(rec["id"]),
			Source:        asString(rec["source"]),
			NaturalWidth:  asInt(rec["naturalWidth"]),
			NaturalHeight: asInt(rec["naturalHeight"]),
			Complete:      rec["complete"] == true,
			Alt:           asString(rec["alt"]),
			Title:         asString(rec["title"]),
		})
	}
	return images
}

// Added streams images reported by the page's mutation observer.
func (s *Source) Added() <-chan observer.Image { return s.added }

// Events streams pointer interactions with attached affordances.
func (s *Source) Events() <-chan observer.Event { return s.events }

// OnLoad arms a one-time load listener for the image.
func (s *Source) OnLoad(id string, fn func(observer.Image)) {
	s.mu.Lock()
	if _, exists := s.onLoads[id]; exists {
		s.mu.Unlock()
		return
	}
	s.onLoads[id] = fn
	s.mu.Unlock()

	if _, err := s.page.Evaluate(watchLoadScript, id); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("failed to arm load listener")
	}
}

// Attach wraps the image and adds the hidden save control.
func (s *Source) Attach(id string) error {
	result, err := s.page.Evaluate(attachScript, id)
	if err != nil {
		return fmt.Errorf("attach affordance: %w", err)
	}
	if attached, ok := result.(bool); ok && !attached {
		return fmt.Errorf("image %s has no parent to wrap", id)
	}
	return nil
}

// Apply reflects an affordance state into the page.
func (s *Source) Apply(id string, state observer.State) {
	arg := map[string]any{"id": id, "state": string(state)}
	if _, err := s.page.Evaluate(applyScript, arg); err != nil {
		log.Debug().Err(err).Str("id", id).Msg("failed to apply state")
	}
}

// Notify shows a toast, replacing any visible one.
func (s *Source) Notify(t observer.Toast) {
	arg := map[string]any{"message": t.Message, "kind": string(t.Kind)}
	if _, err := s.page.Evaluate(toastScript, arg); err != nil {
		log.Debug().Err(err).Msg("failed to show toast")
	}
}

// PageInfo returns the document's URL and title.
func (s *Source) PageInfo() observer.PageInfo {
	title, err := s.page.Title()
	if err != nil {
		title = ""
	}
	return observer.PageInfo{URL: s.page.URL(), Title: title}
}

// Close stops delivering events. Channels are closed so a running observer
// loop drains and exits.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.added)
	close(s.events)
}

func asString(v any) string {
	str, _ := v.(string)
	return str
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
