package viewport

import (
	"sync"
	"time"
)

// Section describes one navigable page region.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Info  string `json:"info"`
	Theme string `json:"theme"`
}

type Mode string

const (
	// ModeScroll picks the last section whose top, less the lead-in, has been
	// scrolled past.
	ModeScroll Mode = "scroll"
	// ModeVisibility picks the section that most recently crossed the
	// viewport midpoint.
	ModeVisibility Mode = "visibility"
)

// DefaultLeadIn highlights a section slightly before its top reaches the
// viewport top.
const DefaultLeadIn = 200.0

// Options configure a Tracker. LeadIn is used as given; zero means sections
// activate exactly when their top reaches the viewport top.
type Options struct {
	Mode     Mode
	LeadIn   float64
	Interval time.Duration
}

// Tracker derives the active section for one mounted page view.
type Tracker struct {
	sections []Section
	leadIn   float64
	mode     Mode

	active   *Signal
	throttle *Throttle

	mu      sync.Mutex
	tops    map[string]float64
	offset  float64
	seq     uint64 // last accepted scroll report
	visible []string // visible sections, most recent crossing last
}

// NewTracker starts on the first section. sections must not be empty.
func NewTracker(sections []Section, opts Options) *Tracker {
	if opts.Mode == "" {
		opts.Mode = ModeScroll
	}
	t := &Tracker{
		sections: append([]Section(nil), sections...),
		leadIn:   opts.LeadIn,
		mode:     opts.Mode,
		active:   NewSignal(sections[0].ID),
		tops:     make(map[string]float64),
	}
	t.throttle = NewThrottle(opts.Interval, t.recompute)
	return t
}

func (t *Tracker) Mode() Mode { return t.mode }

// Active returns the current active section id.
func (t *Tracker) Active() string { return t.active.Get() }

// Subscribe streams active section changes until cancel is called or the
// tracker is stopped.
func (t *Tracker) Subscribe() (<-chan string, func()) { return t.active.Subscribe() }

// Measure records section top offsets. Unknown ids are ignored.
func (t *Tracker) Measure(tops map[string]float64) {
	t.mu.Lock()
	for _, s := range t.sections {
		if top, ok := tops[s.ID]; ok {
			t.tops[s.ID] = top
		}
	}
	t.mu.Unlock()
	t.throttle.Trigger()
}

// Scroll records the scroll offset of report seq and schedules a recompute.
// Reports at or below the last accepted seq arrived out of order and are
// dropped; Scroll reports whether this one was kept.
func (t *Tracker) Scroll(seq uint64, offset float64) bool {
	t.mu.Lock()
	if seq <= t.seq {
		t.mu.Unlock()
		return false
	}
	t.seq, t.offset = seq, offset
	t.mu.Unlock()
	t.throttle.Trigger()
	return true
}

// Visibility records a section crossing the viewport midpoint.
func (t *Tracker) Visibility(id string, visible bool) {
	if !t.known(id) {
		return
	}
	t.mu.Lock()
	t.visible = remove(t.visible, id)
	if visible {
		t.visible = append(t.visible, id)
	}
	t.mu.Unlock()
	t.throttle.Trigger()
}

// Stop cancels pending work and closes all subscriptions.
func (t *Tracker) Stop() {
	t.throttle.Stop()
	t.active.closeAll()
}

func (t *Tracker) recompute() {
	t.mu.Lock()
	var next string
	switch t.mode {
	case ModeVisibility:
		next = t.mostRecentVisible()
	default:
		next = activeAt(t.sections, t.tops, t.offset, t.leadIn)
	}
	t.mu.Unlock()

	if next == "" {
		next = t.sections[0].ID
	}
	t.active.Set(next)
}

func (t *Tracker) mostRecentVisible() string {
	if len(t.visible) == 0 {
		return ""
	}
	return t.visible[len(t.visible)-1]
}

func (t *Tracker) known(id string) bool {
	for _, s := range t.sections {
		if s.ID == id {
			return true
		}
	}
	return false
}

// activeAt returns the last section in document order whose adjusted top is
// at or above offset, or "" when none qualifies or nothing is measured.
func activeAt(sections []Section, tops map[string]float64, offset, leadIn float64) string {
	current := ""
	for _, s := range sections {
		top, ok := tops[s.ID]
		if !ok {
			continue
		}
		if offset >= top-leadIn {
			current = s.ID
		}
	}
	return current
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
