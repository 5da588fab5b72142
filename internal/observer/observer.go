package observer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kobohq/kobo-clipper/internal/protocol"
)

// Options tune the observer. Zero values fall back to the defaults below.
type Options struct {
	// MinImageSize is the minimum natural width and height; smaller images
	// (icons, spacers) never receive an affordance.
	MinImageSize int

	// SettleDelay is how long after the initial scan to run a second full
	// pass, catching lazily-loaded images.
	SettleDelay time.Duration

	// RevertDelay is how long a success or error state stays visible before
	// the affordance returns to idle.
	RevertDelay time.Duration

	// SaveTimeout bounds one save round-trip to the daemon.
	SaveTimeout time.Duration
}

const (
	defaultMinImageSize = 50
	defaultSettleDelay  = 2 * time.Second
	defaultRevertDelay  = 2 * time.Second
	defaultSaveTimeout  = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MinImageSize == 0 {
		o.MinImageSize = defaultMinImageSize
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = defaultSettleDelay
	}
	if o.RevertDelay == 0 {
		o.RevertDelay = defaultRevertDelay
	}
	if o.SaveTimeout == 0 {
		o.SaveTimeout = defaultSaveTimeout
	}
	return o
}

// Observer runs the image-detection protocol against one document: scan,
// qualify, attach, then keep watching for added nodes. One code path handles
// both the initial scan and every mutation-driven increment.
type Observer struct {
	src   DOMSource
	saver Saver
	opts  Options

	mu          sync.Mutex
	processed   map[string]struct{}
	deferred    map[string]struct{}
	affordances map[string]*attached
}

type attached struct {
	img Image
	aff *affordance
}

// New builds an observer over a DOM source and a saver.
func New(src DOMSource, saver Saver, opts Options) *Observer {
	return &Observer{
		src:         src,
		saver:       saver,
		opts:        opts.withDefaults(),
		processed:   make(map[string]struct{}),
		deferred:    make(map[string]struct{}),
		affordances: make(map[string]*attached),
	}
}

// Run scans the document, schedules the settle re-pass, and then serves
// node-added and pointer events until ctx is cancelled or the page goes
// away.
func (o *Observer) Run(ctx context.Context) error {
	o.Scan()

	settle := time.NewTimer(o.opts.SettleDelay)
	defer settle.Stop()

	added := o.src.Added()
	events := o.src.Events()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settle.C:
			o.Scan()
		case img, ok := <-added:
			if !ok {
				return nil
			}
			o.Process(img)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.handleEvent(ctx, ev)
		}
	}
}

// Scan runs a full pass over the document's current images. Safe to call
// repeatedly; processed images are skipped.
func (o *Observer) Scan() {
	for _, img := range o.src.Snapshot() {
		o.Process(img)
	}
}

// Process evaluates one image: defer if still loading, skip if unqualified
// (without marking it processed, so a later mutation re-triggers
// evaluation), otherwise mark processed exactly once and attach the
// affordance.
func (o *Observer) Process(img Image) {
	o.mu.Lock()
	if _, done := o.processed[img.ID]; done {
		o.mu.Unlock()
		return
	}

	if !img.Complete {
		if _, waiting := o.deferred[img.ID]; !waiting {
			o.deferred[img.ID] = struct{}{}
			o.mu.Unlock()
			o.src.OnLoad(img.ID, func(loaded Image) {
				o.mu.Lock()
				delete(o.deferred, loaded.ID)
				o.mu.Unlock()
				o.Process(loaded)
			})
			return
		}
		o.mu.Unlock()
		return
	}

	if !o.qualifies(img) {
		o.mu.Unlock()
		return
	}

	// Mark before attaching so a re-entrant pass cannot double-attach.
	o.processed[img.ID] = struct{}{}
	o.mu.Unlock()

	if err := o.src.Attach(img.ID); err != nil {
		log.Warn().Err(err).Str("image", img.Source).Msg("failed to attach affordance")
		o.mu.Lock()
		delete(o.processed, img.ID)
		o.mu.Unlock()
		return
	}

	id := img.ID
	aff := newAffordance(func(s State) { o.src.Apply(id, s) })
	o.mu.Lock()
	o.affordances[img.ID] = &attached{img: img, aff: aff}
	o.mu.Unlock()
}

// qualifies applies the qualification predicate to a fully loaded image.
func (o *Observer) qualifies(img Image) bool {
	if img.NaturalWidth < o.opts.MinImageSize || img.NaturalHeight < o.opts.MinImageSize {
		return false
	}
	if strings.HasPrefix(img.Source, "data:") {
		return false
	}
	return img.Source != ""
}

func (o *Observer) handleEvent(ctx context.Context, ev Event) {
	o.mu.Lock()
	at, ok := o.affordances[ev.ImageID]
	o.mu.Unlock()
	if !ok {
		return
	}

	switch ev.Kind {
	case EventPointerEnter:
		at.aff.pointerEnter()
	case EventPointerLeave:
		at.aff.pointerLeave()
	case EventActivate:
		go o.save(ctx, at)
	}
}

// save performs one user-initiated save. The session precondition is checked
// before the affordance ever enters saving; the coordinator re-checks it
// authoritatively. Once sent, the request runs to completion; there is no
// cancellation path besides the page itself going away.
func (o *Observer) save(ctx context.Context, at *attached) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.SaveTimeout)
	defer cancel()

	signedIn, err := o.saver.SignedIn(ctx)
	if err != nil {
		o.src.Notify(Toast{Message: saveErrorMessage(err), Kind: ToastError})
		return
	}
	if !signedIn {
		o.src.Notify(Toast{Message: "Please sign in to Kobo first", Kind: ToastError})
		return
	}

	if !at.aff.beginSave() {
		return
	}

	page := o.src.PageInfo()
	description := at.img.Alt
	if description == "" {
		description = at.img.Title
	}

	err = o.saver.Save(ctx, at.img.Source, page.URL, page.Title, description)
	if err != nil {
		log.Warn().Err(err).Str("image", at.img.Source).Msg("save failed")
		at.aff.finish(false, o.opts.RevertDelay)
		o.src.Notify(Toast{Message: saveErrorMessage(err), Kind: ToastError})
		return
	}

	at.aff.finish(true, o.opts.RevertDelay)
	o.src.Notify(Toast{Message: "Image saved to Kobo!", Kind: ToastSuccess})
}

// saveErrorMessage renders a failure for the toast. A dead daemon is
// terminal and tells the user what to do instead of inviting a retry.
func saveErrorMessage(err error) string {
	if errors.Is(err, protocol.ErrDaemonUnavailable) {
		return "Kobo clipper was restarted. Please reload the page."
	}
	var remote *protocol.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	return "Failed to save image"
}

// AttachedCount reports how many affordances are currently attached.
func (o *Observer) AttachedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.affordances)
}

// StateOf returns the state of the affordance for the given image, if one is
// attached.
func (o *Observer) StateOf(imageID string) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	at, ok := o.affordances[imageID]
	if !ok {
		return "", false
	}
	return at.aff.current(), true
}
