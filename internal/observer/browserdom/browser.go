package browserdom

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Browser owns the playwright process and one page for the watch session.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// Launch installs (if needed) and starts playwright, launches Chromium and
// opens one page.
func Launch(headless bool) (*Browser, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &headless})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 900},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &Browser{pw: pw, browser: browser, context: context, page: page}, nil
}

// Page returns the session's page.
func (b *Browser) Page() playwright.Page { return b.page }

// Navigate loads the given URL and waits for the DOM to be ready.
func (b *Browser) Navigate(url string) error {
	if _, err := b.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Close tears the whole browser session down.
func (b *Browser) Close() {
	_ = b.page.Close()
	_ = b.context.Close()
	_ = b.browser.Close()
	_ = b.pw.Stop()
}
