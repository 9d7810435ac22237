package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"fitdesk/internal/domain/member"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type tokenIssuer interface {
	GenerateToken(userID, orgID int64, role string) (string, error)
}

// Service authenticates staff users and issues org-scoped tokens.
type Service struct {
	members member.Repository
	jwt     tokenIssuer
}

func NewService(members member.Repository, jwt tokenIssuer) *Service {
	return &Service{members: members, jwt: jwt}
}

type LoginResult struct {
	Staff *member.StaffUser
	Token string
}

// Login verifies the staff credentials and returns a signed token
// carrying the staff user's org scope and role.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	staff, err := s.members.GetStaffByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, member.ErrStaffNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(staff.ID, staff.OrgID, string(staff.Role))
	if err != nil {
		return nil, err
	}

	return &LoginResult{Staff: staff, Token: token}, nil
}

// HashPassword is used by seeding and staff provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
