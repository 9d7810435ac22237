package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("booking not found")

// Repository handles persistence for bookings.
type Repository interface {
	GetByID(ctx context.Context, orgID, id int64) (*Booking, error)
	ListByPlanInWindow(ctx context.Context, planID int64, start, end time.Time) ([]*Booking, error)
	// CancelInWindow cancels booked sessions of the plan that start
	// inside [start, end), stamping the given reason. Returns the
	// number of bookings touched.
	CancelInWindow(ctx context.Context, planID int64, start, end time.Time, reason string) (int, error)
	// RestoreInWindow re-books sessions previously canceled with the
	// given reason, as long as they have not started yet.
	RestoreInWindow(ctx context.Context, planID int64, start, end time.Time, reason string, now time.Time) (int, error)
	Create(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, orgID, id int64) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByPlanInWindow(ctx context.Context, planID int64, start, end time.Time) ([]*Booking, error) {
	var rows []*Booking
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND start_time >= ? AND start_time < ?", planID, start, end).
		Order("start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CancelInWindow(ctx context.Context, planID int64, start, end time.Time, reason string) (int, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("plan_id = ? AND status = ? AND start_time >= ? AND start_time < ?",
			planID, StatusBooked, start, end).
		Updates(map[string]any{
			"status":        StatusCanceled,
			"cancel_reason": reason,
			"canceled_at":   now,
			"updated_at":    now,
		})
	return int(res.RowsAffected), res.Error
}

func (r *repository) RestoreInWindow(ctx context.Context, planID int64, start, end time.Time, reason string, now time.Time) (int, error) {
	res := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("plan_id = ? AND status = ? AND cancel_reason = ? AND start_time >= ? AND start_time < ? AND start_time > ?",
			planID, StatusCanceled, reason, start, end, now).
		Updates(map[string]any{
			"status":        StatusBooked,
			"cancel_reason": "",
			"canceled_at":   nil,
			"updated_at":    now,
		})
	return int(res.RowsAffected), res.Error
}

func (r *repository) Create(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *repository) Update(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Save(b).Error
}
