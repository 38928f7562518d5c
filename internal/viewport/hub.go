package viewport

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownView  = errors.New("viewport: unknown view")
	ErrTooManyViews = errors.New("viewport: too many mounted views")
)

// DefaultMaxViews bounds concurrently mounted page views.
const DefaultMaxViews = 1024

// Hub owns one Tracker per mounted page view. A view is mounted when its event
// stream opens and unmounted when the stream closes.
type Hub struct {
	sections []Section
	opts     Options
	maxViews int
	logger   *zap.Logger

	mu    sync.Mutex
	views map[string]*Tracker
}

func NewHub(sections []Section, opts Options, logger *zap.Logger) *Hub {
	return &Hub{
		sections: sections,
		opts:     opts,
		maxViews: DefaultMaxViews,
		logger:   logger.Named("viewport"),
		views:    make(map[string]*Tracker),
	}
}

func (h *Hub) Sections() []Section { return h.sections }

// SetMaxViews changes the mount limit. Values below one are ignored.
func (h *Hub) SetMaxViews(n int) {
	if n < 1 {
		return
	}
	h.mu.Lock()
	h.maxViews = n
	h.mu.Unlock()
}

// Mount registers a new view and returns its id and tracker.
func (h *Hub) Mount() (string, *Tracker, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.views) >= h.maxViews {
		return "", nil, ErrTooManyViews
	}
	id := uuid.NewString()
	t := NewTracker(h.sections, h.opts)
	h.views[id] = t
	h.logger.Debug("View mounted", zap.String("view", id), zap.Int("views", len(h.views)))
	return id, t, nil
}

func (h *Hub) Lookup(id string) (*Tracker, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.views[id]
	if !ok {
		return nil, ErrUnknownView
	}
	return t, nil
}

// Unmount stops the view's tracker. Unknown ids are ignored.
func (h *Hub) Unmount(id string) {
	h.mu.Lock()
	t, ok := h.views[id]
	delete(h.views, id)
	n := len(h.views)
	h.mu.Unlock()
	if ok {
		t.Stop()
		h.logger.Debug("View unmounted", zap.String("view", id), zap.Int("views", n))
	}
}

// Len returns the number of mounted views.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

// Close unmounts every view.
func (h *Hub) Close() {
	h.mu.Lock()
	views := h.views
	h.views = make(map[string]*Tracker)
	h.mu.Unlock()
	for _, t := range views {
		t.Stop()
	}
}
