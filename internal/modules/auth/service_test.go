package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"fitdesk/internal/domain/member"
)

type fakeIssuer struct{}

func (fakeIssuer) GenerateToken(userID, orgID int64, role string) (string, error) {
	return fmt.Sprintf("token-%d-%d-%s", userID, orgID, role), nil
}

func newService(t *testing.T) (*Service, member.StaffUser) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&member.Org{}, &member.Member{}, &member.StaffUser{}))

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	staff := member.StaffUser{
		OrgID: 3, Email: "desk@gym.test", PasswordHash: hash,
		Role: member.RoleStaff, IsActive: true,
	}
	require.NoError(t, db.Create(&staff).Error)

	return NewService(member.NewRepository(db), fakeIssuer{}), staff
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue an org-scoped token", func(t *testing.T) {
		svc, staff := newService(t)
		res, err := svc.Login(ctx, "desk@gym.test", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, staff.ID, res.Staff.ID)
		assert.Equal(t, fmt.Sprintf("token-%d-3-staff", staff.ID), res.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Login(ctx, "desk@gym.test", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email reads the same as a wrong password", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Login(ctx, "nobody@gym.test", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
