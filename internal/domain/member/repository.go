package member

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrStaffNotFound  = errors.New("staff user not found")
)

// Repository handles persistence for orgs, members and staff users.
type Repository interface {
	GetMemberByID(ctx context.Context, orgID, id int64) (*Member, error)
	GetStaffByEmail(ctx context.Context, email string) (*StaffUser, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetMemberByID(ctx context.Context, orgID, id int64) (*Member, error) {
	var m Member
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetStaffByEmail(ctx context.Context, email string) (*StaffUser, error) {
	var u StaffUser
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &u, nil
}
