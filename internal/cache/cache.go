// Package cache keeps a local mirror of the flashcard set for display.
//
// Mutations are server-confirmed: the mirror only changes after the backend
// answers, and the backend's record replaces whatever the caller sent. A
// failed Load keeps the last known-good mirror and records the error.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"studybuddy/internal/apperr"
	"studybuddy/internal/flashcard"
)

// Backend is the flashcard API the cache mirrors. Both client.Client and
// flashcard.Service satisfy it.
type Backend interface {
	List(ctx context.Context) ([]flashcard.Flashcard, error)
	Create(ctx context.Context, question, answer string) (flashcard.Flashcard, error)
	Update(ctx context.Context, id, question, answer string) (flashcard.Flashcard, error)
	Delete(ctx context.Context, id string) error
}

// Reviewer is implemented by backends that can stamp lastReviewed.
type Reviewer interface {
	MarkReviewed(ctx context.Context, id string) (flashcard.Flashcard, error)
}

// Porter is implemented by backends that support export and import.
type Porter interface {
	Export(ctx context.Context) (flashcard.ExportDocument, error)
	Import(ctx context.Context, doc flashcard.ExportDocument) (int, error)
}

var ErrUnsupported = errors.New("operation not supported by backend")

type Action string

const (
	ActionLoad   Action = "load"
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionReview Action = "review"
	ActionImport Action = "import"
)

// Snapshot is a copy of the cache state. Nothing in it is shared with the
// cache, so subscribers may keep it.
type Snapshot struct {
	Version uint64
	Cards   []flashcard.Flashcard
	Loaded  bool
	Err     error
	Busy    map[Action]bool
}

func (s Snapshot) IsBusy(a Action) bool { return s.Busy[a] }

type Cache struct {
	backend Backend

	mu      sync.Mutex
	version uint64
	cards   []flashcard.Flashcard
	loaded  bool
	err     error
	busy    map[Action]int
	subs    map[int]*subscriber
	nextSub int

	// notifyMu serializes delivery. Take it before mu, never after.
	notifyMu sync.Mutex
}

type subscriber struct {
	fn   func(Snapshot)
	seen uint64 // guarded by notifyMu
}

func New(b Backend) *Cache {
	return &Cache{
		backend: b,
		busy:    map[Action]int{},
		subs:    map[int]*subscriber{},
	}
}

// NewLocal returns a cache whose backend is a file-backed store at path.
// All validation and atomicity rules of flashcard.Service apply.
func NewLocal(path string) (*Cache, error) {
	fs, err := flashcard.OpenFileStore(path)
	if err != nil {
		return nil, err
	}
	return New(flashcard.NewService(fs)), nil
}

func (c *Cache) Backend() Backend { return c.backend }

func (c *Cache) Cards() []flashcard.Flashcard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cards)
}

// Find looks id up in the mirror only.
func (c *Cache) Find(id string) (flashcard.Flashcard, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.cards[i], true
	}
	return flashcard.Flashcard{}, false
}

// Err is the error from the most recent Load, or nil after a successful one.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Busy reports whether a call of kind a is in flight.
func (c *Cache) Busy(a Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[a] > 0
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe calls fn with the current state and again after every change.
// fn runs synchronously and must not call the mutating methods.
func (c *Cache) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.notifyMu.Lock()
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	sub := &subscriber{fn: fn}
	c.subs[id] = sub
	snap := c.snapshotLocked()
	c.mu.Unlock()

	sub.seen = snap.Version
	fn(snap)
	c.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Load replaces the mirror with the backend's list. On failure the previous
// mirror stays in place. There is no retry.
func (c *Cache) Load(ctx context.Context) error {
	c.begin(ActionLoad)
	cards, err := c.backend.List(ctx)
	c.finish(ActionLoad, func() {
		if err != nil {
			c.err = err
			return
		}
		c.cards = slices.Clone(cards)
		c.loaded = true
		c.err = nil
	})
	return err
}

func (c *Cache) Add(ctx context.Context, question, answer string) (flashcard.Flashcard, error) {
	c.begin(ActionAdd)
	card, err := c.backend.Create(ctx, question, answer)
	c.finish(ActionAdd, func() {
		if err == nil {
			c.upsertLocked(card)
		}
	})
	return card, err
}

func (c *Cache) Update(ctx context.Context, id, question, answer string) (flashcard.Flashcard, error) {
	c.begin(ActionUpdate)
	card, err := c.backend.Update(ctx, id, question, answer)
	c.finish(ActionUpdate, func() {
		c.reconcileLocked(id, card, err)
	})
	return card, err
}

// Delete removes id from the mirror once the backend confirms. A not-found
// reply also drops the stale entry.
func (c *Cache) Delete(ctx context.Context, id string) error {
	c.begin(ActionDelete)
	err := c.backend.Delete(ctx, id)
	c.finish(ActionDelete, func() {
		if err == nil || errors.Is(err, apperr.ErrNotFound) {
			c.removeLocked(id)
		}
	})
	return err
}

func (c *Cache) MarkReviewed(ctx context.Context, id string) (flashcard.Flashcard, error) {
	r, ok := c.backend.(Reviewer)
	if !ok {
		return flashcard.Flashcard{}, fmt.Errorf("mark reviewed: %w", ErrUnsupported)
	}

	c.begin(ActionReview)
	card, err := r.MarkReviewed(ctx, id)
	c.finish(ActionReview, func() {
		c.reconcileLocked(id, card, err)
	})
	return card, err
}

func (c *Cache) Export(ctx context.Context) (flashcard.ExportDocument, error) {
	p, ok := c.backend.(Porter)
	if !ok {
		return flashcard.ExportDocument{}, fmt.Errorf("export: %w", ErrUnsupported)
	}
	return p.Export(ctx)
}

// Import replaces the whole set and reloads the mirror.
func (c *Cache) Import(ctx context.Context, doc flashcard.ExportDocument) (int, error) {
	p, ok := c.backend.(Porter)
	if !ok {
		return 0, fmt.Errorf("import: %w", ErrUnsupported)
	}

	c.begin(ActionImport)
	n, err := p.Import(ctx, doc)
	c.finish(ActionImport, func() {})
	if err != nil {
		return 0, err
	}
	return n, c.Load(ctx)
}

func (c *Cache) begin(a Action) {
	c.mu.Lock()
	c.busy[a]++
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Cache) finish(a Action, apply func()) {
	c.mu.Lock()
	c.busy[a]--
	apply()
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// notify delivers snap to each subscriber that has not yet seen it or a
// newer one. Versions reach a subscriber in increasing order.
func (c *Cache) notify(snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	subs := make([]*subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		if snap.Version <= s.seen {
			continue
		}
		s.seen = snap.Version
		s.fn(snap)
	}
}

func (c *Cache) snapshotLocked() Snapshot {
	busy := make(map[Action]bool, len(c.busy))
	for a, n := range c.busy {
		if n > 0 {
			busy[a] = true
		}
	}
	return Snapshot{
		Version: c.version,
		Cards:   slices.Clone(c.cards),
		Loaded:  c.loaded,
		Err:     c.err,
		Busy:    busy,
	}
}

func (c *Cache) reconcileLocked(id string, card flashcard.Flashcard, err error) {
	switch {
	case err == nil:
		c.upsertLocked(card)
	case errors.Is(err, apperr.ErrNotFound):
		c.removeLocked(id)
	}
}

func (c *Cache) indexOf(id string) int {
	return slices.IndexFunc(c.cards, func(f flashcard.Flashcard) bool { return f.ID == id })
}

func (c *Cache) upsertLocked(card flashcard.Flashcard) {
	if i := c.indexOf(card.ID); i >= 0 {
		c.cards[i] = card
		return
	}
	c.cards = append(c.cards, card)
}

func (c *Cache) removeLocked(id string) {
	if i := c.indexOf(id); i >= 0 {
		c.cards = slices.Delete(c.cards, i, i+1)
	}
}
