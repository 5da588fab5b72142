// Package observer watches the live DOM of a page for qualifying images and
// offers a save affordance on each, asking the coordinator daemon to perform
// the actual save. The package is DOM-agnostic: a DOMSource feeds it image
// snapshots, node-added events and pointer events, and receives affordance
// state and notifications back.
package observer

import "context"

// Image is one trackable image element observed in a page. ID is the node
// identity the source guarantees stable for the lifetime of the element.
type Image struct {
	ID            string
	Source        string
	NaturalWidth  int
	NaturalHeight int
	Complete      bool
	Alt           string
	Title         string
}

// State of one affordance. Pointer events can only move between idle and
// hover; saving is entered by activation alone.
type State string

const (
	StateIdle    State = "idle"
	StateHover   State = "hover"
	StateSaving  State = "saving"
	StateSuccess State = "success"
	StateError   State = "error"
)

// EventKind names the pointer interactions a source reports.
type EventKind string

const (
	EventPointerEnter EventKind = "pointer-enter"
	EventPointerLeave EventKind = "pointer-leave"
	EventActivate     EventKind = "activate"
)

// Event is one pointer interaction with an attached affordance.
type Event struct {
	ImageID string
	Kind    EventKind
}

// ToastKind selects the visual flavor of a notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient notification. At most one is visible; showing a new
// one replaces the current one.
type Toast struct {
	Message string
	Kind    ToastKind
}

// PageInfo describes the document the observer is attached to.
type PageInfo struct {
	URL   string
	Title string
}

// DOMSource is the observer's view of a live document.
type DOMSource interface {
	// Snapshot enumerates every image element currently in the document.
	Snapshot() []Image

	// Added streams image elements as they appear in the document, either
	// directly or inside added subtrees. The channel closes when the page
	// goes away.
	Added() <-chan Image

	// Events streams pointer interactions with attached affordances.
	Events() <-chan Event

	// OnLoad registers a one-time callback fired when the image finishes
	// loading, with refreshed dimensions.
	OnLoad(id string, fn func(Image))

	// Attach wraps the image in a neutral container and adds the hidden
	// save control.
	Attach(id string) error

	// Apply reflects an affordance state into the page.
	Apply(id string, s State)

	// Notify shows a toast, replacing any visible one.
	Notify(t Toast)

	// PageInfo returns the document's URL and title.
	PageInfo() PageInfo
}

// Saver is the observer's handle on the coordinator, reached over the
// message boundary. The page context never holds the auth token.
type Saver interface {
	// SignedIn reports whether a session exists, without a remote API call.
	SignedIn(ctx context.Context) (bool, error)

	// Save persists one image with its page metadata.
	Save(ctx context.Context, imageURL, pageURL, title, description string) error
}
