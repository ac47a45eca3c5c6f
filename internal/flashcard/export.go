package flashcard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"studybuddy/internal/apperr"
)

const ExportVersion = 1

// ExportDocument is the portable form of a flashcard set.
type ExportDocument struct {
	Version    int         `json:"version"`
	ExportedAt time.Time   `json:"exportedAt"`
	Flashcards []Flashcard `json:"flashcards"`
}

func (s *Service) Export(ctx context.Context) (ExportDocument, error) {
	cards, err := s.Store.List(ctx)
	if err != nil {
		return ExportDocument{}, err
	}
	return ExportDocument{
		Version:    ExportVersion,
		ExportedAt: s.now(),
		Flashcards: cards,
	}, nil
}

// Import replaces the whole set with doc's cards, reusing their ids.
// Every card is validated before anything is written.
func (s *Service) Import(ctx context.Context, doc ExportDocument) (int, error) {
	if doc.Version != 0 && doc.Version != ExportVersion {
		return 0, fmt.Errorf("%w: unsupported export version %d", apperr.ErrValidation, doc.Version)
	}

	now := s.now()
	seen := make(map[string]struct{}, len(doc.Flashcards))
	cards := make([]Flashcard, 0, len(doc.Flashcards))

	for i, c := range doc.Flashcards {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return 0, fmt.Errorf("%w: flashcard %d has no id", apperr.ErrValidation, i)
		}
		if _, ok := seen[c.ID]; ok {
			return 0, fmt.Errorf("%w: duplicate flashcard id %q", apperr.ErrValidation, c.ID)
		}
		seen[c.ID] = struct{}{}

		q, a, err := ValidateContent(c.Question, c.Answer)
		if err != nil {
			return 0, fmt.Errorf("flashcard %q: %w", c.ID, err)
		}
		c.Question, c.Answer = q, a

		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		cards = append(cards, c)
	}

	if err := s.Store.Replace(ctx, cards); err != nil {
		return 0, err
	}
	return len(cards), nil
}

func EncodeExport(w io.Writer, doc ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func DecodeExport(r io.Reader) (ExportDocument, error) {
	var doc ExportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return ExportDocument{}, fmt.Errorf("%w: invalid export document: %v", apperr.ErrValidation, err)
	}
	return doc, nil
}
