package detection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("detection not found")

// Repository stores detections. Every read and delete is scoped to a user.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, d *Detection) error {
	if d.PublicID == "" {
		d.PublicID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to save detection: %w", err)
	}
	return nil
}

// ListByUser returns the user's detections, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]Detection, error) {
	var out []Detection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, userID, id uint) (*Detection, error) {
	var d Detection
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load detection: %w", err)
	}
	return &d, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Detection{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete detection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAllByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Detection{}).Error; err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}

// PurgeUser deletes the user's history inside tx, so it commits or rolls back
// together with whatever else tx does.
func (r *Repository) PurgeUser(ctx context.Context, tx *gorm.DB, userID uint) error {
	return NewRepository(tx).DeleteAllByUser(ctx, userID)
}

func (r *Repository) StatsByUser(ctx context.Context, userID uint) (Stats, error) {
	var rows []struct {
		Label string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&Detection{}).
		Select("label, count(*) as count").
		Where("user_id = ?", userID).
		Group("label").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count detections: %w", err)
	}
	var s Stats
	for _, row := range rows {
		s.Total += row.Count
		switch row.Label {
		case "FAKE":
			s.Fake = row.Count
		case "REAL":
			s.Real = row.Count
		}
	}
	return s, nil
}
