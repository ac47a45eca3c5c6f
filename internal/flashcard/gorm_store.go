package flashcard

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps flashcards in a SQL table (sqlite or postgres).
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) List(ctx context.Context) ([]Flashcard, error) {
	var rows []Record
	if err := s.DB.WithContext(ctx).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Flashcard, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.flashcard())
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (Flashcard, error) {
	var r Record
	if err := s.DB.WithContext(ctx).Where("public_id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Flashcard{}, notFound(id)
		}
		return Flashcard{}, err
	}
	return r.flashcard(), nil
}

func (s *GormStore) Create(ctx context.Context, c Flashcard) error {
	r := recordOf(c)
	return s.DB.WithContext(ctx).Create(&r).Error
}

func (s *GormStore) Update(ctx context.Context, id string, fn func(*Flashcard) error) (Flashcard, error) {
	var out Flashcard

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// sqlite has no row locks; its write transaction already serializes.
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var r Record
		if err := q.Where("public_id = ?", id).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(id)
			}
			return err
		}

		c := r.flashcard()
		if err := fn(&c); err != nil {
			return err
		}

		c.ID = id
		if err := tx.Model(&Record{}).
			Where("seq = ?", r.Seq).
			Updates(map[string]any{
				"question":      c.Question,
				"answer":        c.Answer,
				"updated_at":    c.UpdatedAt,
				"last_reviewed": c.LastReviewed,
			}).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Flashcard{}, err
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("public_id = ?", id).Delete(&Record{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *GormStore) Replace(ctx context.Context, cards []Flashcard) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Record{}).Error; err != nil {
			return err
		}
		for _, c := range cards {
			r := recordOf(c)
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
