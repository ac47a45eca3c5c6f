package flashcard

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"studybuddy/internal/apperr"
)

// Service validates requests and applies them to a Store.
type Service struct {
	Store Store

	// Now and NewID are swappable for tests.
	Now   func() time.Time
	NewID func() string
}

func NewService(store Store) *Service {
	return &Service{Store: store}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC().Truncate(time.Millisecond)
	}
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return NewID()
}

// ValidateContent trims question and answer and checks both are present
// and within length limits.
func ValidateContent(question, answer string) (string, string, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)

	switch {
	case question == "" && answer == "":
		return "", "", fmt.Errorf("%w: question and answer are required", apperr.ErrValidation)
	case question == "":
		return "", "", fmt.Errorf("%w: question is required", apperr.ErrValidation)
	case answer == "":
		return "", "", fmt.Errorf("%w: answer is required", apperr.ErrValidation)
	case utf8.RuneCountInString(question) > MaxQuestionLen:
		return "", "", fmt.Errorf("%w: question exceeds %d characters", apperr.ErrValidation, MaxQuestionLen)
	case utf8.RuneCountInString(answer) > MaxAnswerLen:
		return "", "", fmt.Errorf("%w: answer exceeds %d characters", apperr.ErrValidation, MaxAnswerLen)
	}
	return question, answer, nil
}

func (s *Service) List(ctx context.Context) ([]Flashcard, error) {
	return s.Store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Flashcard, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, question, answer string) (Flashcard, error) {
	question, answer, err := ValidateContent(question, answer)
	if err != nil {
		return Flashcard{}, err
	}

	now := s.now()
	c := Flashcard{
		ID:        s.newID(),
		Question:  question,
		Answer:    answer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Create(ctx, c); err != nil {
		return Flashcard{}, err
	}
	return c, nil
}

// Update replaces question and answer in place. CreatedAt is preserved.
func (s *Service) Update(ctx context.Context, id, question, answer string) (Flashcard, error) {
	question, answer, err := ValidateContent(question, answer)
	if err != nil {
		return Flashcard{}, err
	}

	now := s.now()
	return s.Store.Update(ctx, id, func(c *Flashcard) error {
		c.Question = question
		c.Answer = answer
		c.UpdatedAt = now
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}

// MarkReviewed stamps the card as viewed now.
func (s *Service) MarkReviewed(ctx context.Context, id string) (Flashcard, error) {
	now := s.now()
	return s.Store.Update(ctx, id, func(c *Flashcard) error {
		c.LastReviewed = &now
		return nil
	})
}
