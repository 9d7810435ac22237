package plan

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles persistence for plan templates and member plans.
type Repository interface {
	// Templates
	ListTemplates(ctx context.Context, orgID int64) ([]*Template, error)
	GetTemplateByID(ctx context.Context, orgID, id int64) (*Template, error)

	// Plans
	GetByID(ctx context.Context, orgID, id int64) (*Plan, error)
	// GetByIDForUpdate takes a row lock; meant to be called on a
	// tx-bound repository so concurrent mutations of the same plan
	// serialize.
	GetByIDForUpdate(ctx context.Context, orgID, id int64) (*Plan, error)
	ListByMember(ctx context.Context, orgID, memberID int64) ([]*Plan, error)
	// ListOverdue returns active/upcoming plans whose end date has
	// passed, for the reconciliation sweep.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*Plan, error)
	Create(ctx context.Context, p *Plan) error
	Update(ctx context.Context, p *Plan) error

	// WithTx returns a repository bound to the given transaction.
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

func (r *repository) ListTemplates(ctx context.Context, orgID int64) ([]*Template, error) {
	var tpls []*Template
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND is_active = ?", orgID, true).
		Order("price ASC").
		Find(&tpls).Error
	return tpls, err
}

func (r *repository) GetTemplateByID(ctx context.Context, orgID, id int64) (*Template, error) {
	var tpl Template
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

func (r *repository) GetByID(ctx context.Context, orgID, id int64) (*Plan, error) {
	var p Plan
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, orgID, id int64) (*Plan, error) {
	q := r.db.WithContext(ctx)
	// SQLite has no FOR UPDATE; its single-writer transactions already
	// serialize. Row locks are only meaningful on postgres.
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p Plan
	err := q.
		Where("org_id = ? AND id = ?", orgID, id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListByMember(ctx context.Context, orgID, memberID int64) ([]*Plan, error) {
	var plans []*Plan
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND member_id = ?", orgID, memberID).
		Order("created_at DESC").
		Find(&plans).Error
	return plans, err
}

func (r *repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*Plan, error) {
	var plans []*Plan
	q := r.db.WithContext(ctx).
		Where("status IN ? AND end_date < ?", []Status{StatusActive, StatusUpcoming}, DateOnly(now))
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&plans).Error
	return plans, err
}

func (r *repository) Create(ctx context.Context, p *Plan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) Update(ctx context.Context, p *Plan) error {
	return r.db.WithContext(ctx).Save(p).Error
}
