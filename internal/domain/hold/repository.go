package hold

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles persistence for plan holds.
type Repository interface {
	GetByID(ctx context.Context, orgID, id int64) (*Hold, error)
	GetByIDForUpdate(ctx context.Context, orgID, id int64) (*Hold, error)
	// ListByPlan returns the plan's holds, newest window first.
	// Canceled holds are included only when includeCanceled is set.
	ListByPlan(ctx context.Context, planID int64, includeCanceled bool) ([]*Hold, error)
	// ListDueForActivation returns upcoming holds whose window has been
	// reached.
	ListDueForActivation(ctx context.Context, now time.Time, limit int) ([]*Hold, error)
	// ListDueForExpiry returns active holds whose window has elapsed.
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Hold, error)
	Create(ctx context.Context, h *Hold) error
	Update(ctx context.Context, h *Hold) error

	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, orgID, id int64) (*Hold, error) {
	var h Hold
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, orgID, id int64) (*Hold, error) {
	q := r.db.WithContext(ctx)
	// Row locks only on postgres; SQLite serializes writers itself.
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var h Hold
	err := q.
		Where("org_id = ? AND id = ?", orgID, id).
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *repository) ListByPlan(ctx context.Context, planID int64, includeCanceled bool) ([]*Hold, error) {
	q := r.db.WithContext(ctx).Where("plan_id = ?", planID)
	if !includeCanceled {
		q = q.Where("status <> ?", StatusCanceled)
	}
	var holds []*Hold
	err := q.Order("start_date_time DESC").Find(&holds).Error
	return holds, err
}

func (r *repository) ListDueForActivation(ctx context.Context, now time.Time, limit int) ([]*Hold, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND start_date_time <= ?", StatusUpcoming, now)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var holds []*Hold
	err := q.Order("start_date_time ASC").Find(&holds).Error
	return holds, err
}

func (r *repository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Hold, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND end_date_time <= ?", StatusActive, now)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var holds []*Hold
	err := q.Order("end_date_time ASC").Find(&holds).Error
	return holds, err
}

func (r *repository) Create(ctx context.Context, h *Hold) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *repository) Update(ctx context.Context, h *Hold) error {
	return r.db.WithContext(ctx).Save(h).Error
}
