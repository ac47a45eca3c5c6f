package flashcard

import (
	"context"
	"fmt"
	"sync"

	"studybuddy/internal/apperr"
)

// Store holds flashcards in insertion order. Each call is atomic with
// respect to the others; concurrent updates to one id are last-write-wins.
type Store interface {
	List(ctx context.Context) ([]Flashcard, error)
	Get(ctx context.Context, id string) (Flashcard, error)
	Create(ctx context.Context, c Flashcard) error
	// Update applies fn to a copy of the stored card and saves the result.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*Flashcard) error) (Flashcard, error)
	Delete(ctx context.Context, id string) error
	// Replace swaps the whole set, keeping the order of cards.
	Replace(ctx context.Context, cards []Flashcard) error
}

func notFound(id string) error {
	return fmt.Errorf("%w: flashcard %q", apperr.ErrNotFound, id)
}

type MemoryStore struct {
	mu    sync.RWMutex
	cards []Flashcard
	index map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: map[string]int{}}
}

func (m *MemoryStore) List(_ context.Context) ([]Flashcard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Flashcard, len(m.cards))
	copy(out, m.cards)
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Flashcard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return Flashcard{}, notFound(id)
	}
	return m.cards[i], nil
}

func (m *MemoryStore) Create(_ context.Context, c Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[c.ID]; ok {
		return fmt.Errorf("flashcard %q already exists", c.ID)
	}
	m.index[c.ID] = len(m.cards)
	m.cards = append(m.cards, c)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Flashcard) error) (Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return Flashcard{}, notFound(id)
	}
	c := m.cards[i]
	if err := fn(&c); err != nil {
		return Flashcard{}, err
	}
	c.ID = id
	m.cards[i] = c
	return c, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return notFound(id)
	}
	m.cards = append(m.cards[:i], m.cards[i+1:]...)
	delete(m.index, id)
	for j := i; j < len(m.cards); j++ {
		m.index[m.cards[j].ID] = j
	}
	return nil
}

func (m *MemoryStore) Replace(_ context.Context, cards []Flashcard) error {
	index := make(map[string]int, len(cards))
	for i, c := range cards {
		if _, ok := index[c.ID]; ok {
			return fmt.Errorf("duplicate flashcard id %q", c.ID)
		}
		index[c.ID] = i
	}
	next := make([]Flashcard, len(cards))
	copy(next, cards)

	m.mu.Lock()
	m.cards, m.index = next, index
	m.mu.Unlock()
	return nil
}
