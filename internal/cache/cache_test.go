package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"studybuddy/internal/apperr"
	"studybuddy/internal/flashcard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend assigns its own ids and timestamps so tests can tell server
// records from caller input.
type fakeBackend struct {
	mu      sync.Mutex
	cards   []flashcard.Flashcard
	seq     int
	listErr error
	mutErr  error

	// gate, when set, blocks Create until closed; entered is signalled first.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) List(_ context.Context) ([]flashcard.Flashcard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]flashcard.Flashcard(nil), f.cards...), nil
}

func (f *fakeBackend) Create(_ context.Context, q, a string) (flashcard.Flashcard, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return flashcard.Flashcard{}, f.mutErr
	}
	f.seq++
	c := flashcard.Flashcard{
		ID:        fmt.Sprintf("srv-%d", f.seq),
		Question:  strings.TrimSpace(q),
		Answer:    strings.TrimSpace(a),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC),
	}
	c.UpdatedAt = c.CreatedAt
	f.cards = append(f.cards, c)
	return c, nil
}

func (f *fakeBackend) Update(_ context.Context, id, q, a string) (flashcard.Flashcard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return flashcard.Flashcard{}, f.mutErr
	}
	for i := range f.cards {
		if f.cards[i].ID == id {
			f.cards[i].Question, f.cards[i].Answer = q, a
			return f.cards[i], nil
		}
	}
	return flashcard.Flashcard{}, fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
}

func (f *fakeBackend) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	for i := range f.cards {
		if f.cards[i].ID == id {
			f.cards = append(f.cards[:i], f.cards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
}

func TestLoadReplacesMirror(t *testing.T) {
	b := &fakeBackend{}
	c := New(b)
	ctx := context.Background()

	_, err := b.Create(ctx, "Q1", "A1")
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx))
	assert.True(t, c.Loaded())
	assert.Len(t, c.Cards(), 1)

	_, err = b.Create(ctx, "Q2", "A2")
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx))
	assert.Len(t, c.Cards(), 2)
}

func TestLoadFailureKeepsLastKnownGood(t *testing.T) {
	b := &fakeBackend{}
	c := New(b)
	ctx := context.Background()

	_, err := b.Create(ctx, "Q1", "A1")
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx))
	before := c.Cards()

	b.listErr = errors.New("connection refused")
	err = c.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, before, c.Cards())
	assert.EqualError(t, c.Err(), "connection refused")

	b.listErr = nil
	require.NoError(t, c.Load(ctx))
	assert.NoError(t, c.Err())
}

func TestLoadFailureBeforeFirstLoad(t *testing.T) {
	c := New(&fakeBackend{listErr: errors.New("offline")})
	require.Error(t, c.Load(context.Background()))
	assert.Empty(t, c.Cards())
	assert.False(t, c.Loaded())
	assert.Error(t, c.Err())
}

func TestAddUsesServerRecord(t *testing.T) {
	c := New(&fakeBackend{})

	card, err := c.Add(context.Background(), "  Q1 ", "A1")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", card.ID)

	cards := c.Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, card, cards[0])
	assert.Equal(t, "Q1", cards[0].Question)
}

func TestFailedMutationsLeaveMirror(t *testing.T) {
	b := &fakeBackend{}
	c := New(b)
	ctx := context.Background()
	card, err := c.Add(ctx, "Q1", "A1")
	require.NoError(t, err)
	before := c.Cards()

	b.mutErr = fmt.Errorf("%w: question is required", apperr.ErrValidation)
	_, err = c.Add(ctx, "", "A")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = c.Update(ctx, card.ID, "", "A")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	err = c.Delete(ctx, card.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, before, c.Cards())
}

func TestUpdateAndDeleteReconcile(t *testing.T) {
	b := &fakeBackend{}
	c := New(b)
	ctx := context.Background()
	card, err := c.Add(ctx, "Q1", "A1")
	require.NoError(t, err)

	updated, err := c.Update(ctx, card.ID, "Q1", "A1 revised")
	require.NoError(t, err)
	got, ok := c.Find(card.ID)
	require.True(t, ok)
	assert.Equal(t, updated, got)

	require.NoError(t, c.Delete(ctx, card.ID))
	_, ok = c.Find(card.ID)
	assert.False(t, ok)
}

func TestNotFoundDropsStaleEntry(t *testing.T) {
	b := &fakeBackend{}
	c := New(b)
	ctx := context.Background()
	card, err := c.Add(ctx, "Q1", "A1")
	require.NoError(t, err)

	// Someone else deleted it on the server.
	require.NoError(t, b.Delete(ctx, card.ID))

	_, err = c.Update(ctx, card.ID, "Q", "A")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, c.Cards())

	err = c.Delete(ctx, card.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBusyWhileInFlight(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := New(b)

	done := make(chan error, 1)
	go func() {
		_, err := c.Add(context.Background(), "Q", "A")
		done <- err
	}()

	<-b.entered
	assert.True(t, c.Busy(ActionAdd))
	assert.False(t, c.Busy(ActionDelete))
	assert.True(t, c.Snapshot().IsBusy(ActionAdd))

	close(b.gate)
	require.NoError(t, <-done)
	assert.False(t, c.Busy(ActionAdd))
}

func TestSubscribe(t *testing.T) {
	c := New(&fakeBackend{})
	ctx := context.Background()

	var got []Snapshot
	cancel := c.Subscribe(func(s Snapshot) { got = append(got, s) })
	require.Len(t, got, 1, "initial state delivered on subscribe")
	assert.Empty(t, got[0].Cards)

	_, err := c.Add(ctx, "Q", "A")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[1].IsBusy(ActionAdd))
	assert.Empty(t, got[1].Cards)
	assert.False(t, got[2].IsBusy(ActionAdd))
	assert.Len(t, got[2].Cards, 1)

	// snapshots are copies
	got[2].Cards[0].Question = "mutated"
	assert.Equal(t, "Q", c.Cards()[0].Question)

	cancel()
	cancel()
	_, err = c.Add(ctx, "Q2", "A2")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSubscribeNeverGoesBackwards(t *testing.T) {
	c := New(&fakeBackend{})
	ctx := context.Background()

	stale := c.Snapshot()
	_, err := c.Add(ctx, "Q", "A")
	require.NoError(t, err)

	var got []Snapshot
	cancel := c.Subscribe(func(s Snapshot) { got = append(got, s) })
	defer cancel()
	require.Len(t, got, 1)

	// A notification computed before the subscription but delivered after it.
	c.notify(stale)
	require.Len(t, got, 1)
	assert.Greater(t, got[0].Version, stale.Version)
	assert.Len(t, got[0].Cards, 1)
}

func TestLateSubscriberDoesNotStarveOthers(t *testing.T) {
	c := New(&fakeBackend{})
	ctx := context.Background()

	var first []Snapshot
	defer c.Subscribe(func(s Snapshot) { first = append(first, s) })()

	_, err := c.Add(ctx, "Q1", "A1")
	require.NoError(t, err)
	pending := c.Snapshot()
	pending.Version++ // next version, not yet announced

	var second []Snapshot
	defer c.Subscribe(func(s Snapshot) { second = append(second, s) })()

	n := len(first)
	c.notify(pending)
	assert.Len(t, first, n+1)
	assert.Len(t, second, 2)
}

func TestOptionalOperationsUnsupported(t *testing.T) {
	c := New(&fakeBackend{})
	ctx := context.Background()

	_, err := c.MarkReviewed(ctx, "x")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = c.Export(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = c.Import(ctx, flashcard.ExportDocument{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLocalCacheValidates(t *testing.T) {
	c, err := NewLocal(filepath.Join(t.TempDir(), "cards.json"))
	require.NoError(t, err)

	_, err = c.Add(context.Background(), "   ", "A")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, c.Cards())
}

func TestLocalCachePersistsAndReviews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	ctx := context.Background()

	c, err := NewLocal(path)
	require.NoError(t, err)
	card, err := c.Add(ctx, "Boiling point of water?", "100 C at sea level")
	require.NoError(t, err)
	reviewed, err := c.MarkReviewed(ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, reviewed.LastReviewed)

	reopened, err := NewLocal(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, c.Cards(), reopened.Cards())
}

func TestLocalExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src, err := NewLocal(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := src.Add(ctx, fmt.Sprintf("Q%d", i), fmt.Sprintf("A%d", i))
		require.NoError(t, err)
	}
	doc, err := src.Export(ctx)
	require.NoError(t, err)

	dst, err := NewLocal(filepath.Join(dir, "b.json"))
	require.NoError(t, err)
	_, err = dst.Add(ctx, "stale", "replaced by import")
	require.NoError(t, err)

	n, err := dst.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	type key struct{ id, q, a string }
	keys := func(cards []flashcard.Flashcard) []key {
		out := make([]key, 0, len(cards))
		for _, c := range cards {
			out = append(out, key{c.ID, c.Question, c.Answer})
		}
		return out
	}
	assert.Equal(t, keys(src.Cards()), keys(dst.Cards()))
}
