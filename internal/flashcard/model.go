package flashcard

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	MaxQuestionLen = 1000
	MaxAnswerLen   = 5000
)

// Flashcard is a question/answer pair. ID and CreatedAt never change after creation.
type Flashcard struct {
	ID           string     `json:"id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastReviewed *time.Time `json:"lastReviewed,omitempty"`
}

// Record is the persisted row for GormStore. Seq keeps insertion order.
type Record struct {
	Seq          uint64     `gorm:"primaryKey;autoIncrement"`
	PublicID     string     `gorm:"column:public_id;uniqueIndex;size:64;not null"`
	Question     string     `gorm:"type:text;not null"`
	Answer       string     `gorm:"type:text;not null"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime:false"`
	LastReviewed *time.Time
}

func (Record) TableName() string { return "flashcards" }

func (r Record) flashcard() Flashcard {
	c := Flashcard{
		ID:        r.PublicID,
		Question:  r.Question,
		Answer:    r.Answer,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.LastReviewed != nil {
		t := r.LastReviewed.UTC()
		c.LastReviewed = &t
	}
	return c
}

func recordOf(c Flashcard) Record {
	return Record{
		PublicID:     c.ID,
		Question:     c.Question,
		Answer:       c.Answer,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		LastReviewed: c.LastReviewed,
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID. Ids generated by one process are strictly increasing.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
