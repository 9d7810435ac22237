package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	bookingdomain "fitdesk/internal/domain/booking"
	holddomain "fitdesk/internal/domain/hold"
	plandomain "fitdesk/internal/domain/plan"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

// fakePlans serves a single plan and counts quota consumption.
type fakePlans struct {
	plan         *plandomain.Plan
	consumed     int
	consumeErr   error
	consumeCalls int
}

func (f *fakePlans) Get(_ context.Context, _, planID int64) (*plandomain.Plan, error) {
	if f.plan == nil || f.plan.ID != planID {
		return nil, plandomain.ErrNotFound
	}
	return f.plan, nil
}

func (f *fakePlans) ConsumeQuota(_ context.Context, _, _ int64, sessions int) (*plandomain.Plan, error) {
	f.consumeCalls++
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.consumed += sessions
	return f.plan, nil
}

type fixture struct {
	db    *gorm.DB
	svc   *Service
	plans *fakePlans
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&bookingdomain.Booking{}))

	plans := &fakePlans{
		plan: &plandomain.Plan{
			ID: 1, OrgID: 1, MemberID: 7,
			StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			Status:    plandomain.StatusActive,
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	svc := NewService(bookingdomain.NewRepository(db), plans, plans, log)
	svc.now = func() time.Time { return now }
	return &fixture{db: db, svc: svc, plans: plans}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("books a future session on a current plan", func(t *testing.T) {
		f := newFixture(t, testNow)
		b, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(24 * time.Hour),
			EndTime:   testNow.Add(25 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, bookingdomain.StatusBooked, b.Status)
		assert.Equal(t, int64(7), b.MemberID)
	})

	t.Run("rejects sessions in the past", func(t *testing.T) {
		f := newFixture(t, testNow)
		_, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(-2 * time.Hour),
			EndTime:   testNow.Add(-time.Hour),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects inverted time ranges", func(t *testing.T) {
		f := newFixture(t, testNow)
		_, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(2 * time.Hour),
			EndTime:   testNow.Add(time.Hour),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects plans that are not usable", func(t *testing.T) {
		f := newFixture(t, testNow)
		f.plans.plan.Status = plandomain.StatusHold

		_, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(24 * time.Hour),
			EndTime:   testNow.Add(25 * time.Hour),
		})
		assert.ErrorIs(t, err, ErrPlanNotUsable)
	})
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("marks attended and burns one session", func(t *testing.T) {
		f := newFixture(t, testNow)
		b, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(24 * time.Hour),
			EndTime:   testNow.Add(25 * time.Hour),
		})
		require.NoError(t, err)

		attended, err := f.svc.CheckIn(ctx, 1, b.ID)
		require.NoError(t, err)
		assert.Equal(t, bookingdomain.StatusAttended, attended.Status)
		assert.Equal(t, 1, f.plans.consumed)
	})

	t.Run("double check-in is rejected", func(t *testing.T) {
		f := newFixture(t, testNow)
		b, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(24 * time.Hour),
			EndTime:   testNow.Add(25 * time.Hour),
		})
		require.NoError(t, err)
		_, err = f.svc.CheckIn(ctx, 1, b.ID)
		require.NoError(t, err)

		_, err = f.svc.CheckIn(ctx, 1, b.ID)
		assert.ErrorIs(t, err, ErrNotBooked)
		assert.Equal(t, 1, f.plans.consumed)
	})

	t.Run("quota refusal blocks the check-in", func(t *testing.T) {
		f := newFixture(t, testNow)
		b, err := f.svc.Create(ctx, 1, CreateBookingRequest{
			PlanID: 1, Title: "HIIT class",
			StartTime: testNow.Add(24 * time.Hour),
			EndTime:   testNow.Add(25 * time.Hour),
		})
		require.NoError(t, err)

		f.plans.consumeErr = &plandomain.QuotaError{Requested: 1, Remaining: 0, Total: 10}
		_, err = f.svc.CheckIn(ctx, 1, b.ID)
		var qe *plandomain.QuotaError
		require.True(t, errors.As(err, &qe))

		// The booking stays booked.
		reloaded, err := f.svc.bookings.GetByID(ctx, 1, b.ID)
		require.NoError(t, err)
		assert.Equal(t, bookingdomain.StatusBooked, reloaded.Status)
	})
}

func TestHoldAdjustments(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *fixture) (inWindow, outside *bookingdomain.Booking) {
		t.Helper()
		inWindow = &bookingdomain.Booking{
			OrgID: 1, PlanID: 1, MemberID: 7, Title: "inside",
			StartTime: testNow.Add(48 * time.Hour),
			EndTime:   testNow.Add(49 * time.Hour),
			Status:    bookingdomain.StatusBooked,
		}
		outside = &bookingdomain.Booking{
			OrgID: 1, PlanID: 1, MemberID: 7, Title: "outside",
			StartTime: testNow.Add(30 * 24 * time.Hour),
			EndTime:   testNow.Add(30*24*time.Hour + time.Hour),
			Status:    bookingdomain.StatusBooked,
		}
		require.NoError(t, f.db.Create(inWindow).Error)
		require.NoError(t, f.db.Create(outside).Error)
		return inWindow, outside
	}

	window := holddomain.Window{
		Start: testNow.Add(24 * time.Hour),
		End:   testNow.Add(8 * 24 * time.Hour),
	}

	t.Run("hold start cancels bookings inside the window", func(t *testing.T) {
		f := newFixture(t, testNow)
		inWindow, outside := seed(t, f)

		require.NoError(t, f.svc.ApplyHoldStart(ctx, 1, window, holddomain.BehaviorCancel))

		var reloaded bookingdomain.Booking
		require.NoError(t, f.db.First(&reloaded, inWindow.ID).Error)
		assert.Equal(t, bookingdomain.StatusCanceled, reloaded.Status)
		assert.Equal(t, bookingdomain.HoldCancelReason, reloaded.CancelReason)

		var untouched bookingdomain.Booking
		require.NoError(t, f.db.First(&untouched, outside.ID).Error)
		assert.Equal(t, bookingdomain.StatusBooked, untouched.Status)
	})

	t.Run("behavior keep leaves bookings alone", func(t *testing.T) {
		f := newFixture(t, testNow)
		inWindow, _ := seed(t, f)

		require.NoError(t, f.svc.ApplyHoldStart(ctx, 1, window, holddomain.BehaviorKeep))

		var reloaded bookingdomain.Booking
		require.NoError(t, f.db.First(&reloaded, inWindow.ID).Error)
		assert.Equal(t, bookingdomain.StatusBooked, reloaded.Status)
	})

	t.Run("hold end restores future hold-canceled bookings only", func(t *testing.T) {
		f := newFixture(t, testNow)
		inWindow, _ := seed(t, f)
		past := &bookingdomain.Booking{
			OrgID: 1, PlanID: 1, MemberID: 7, Title: "already past",
			StartTime: testNow.Add(26 * time.Hour),
			EndTime:   testNow.Add(27 * time.Hour),
			Status:    bookingdomain.StatusBooked,
		}
		require.NoError(t, f.db.Create(past).Error)

		require.NoError(t, f.svc.ApplyHoldStart(ctx, 1, window, holddomain.BehaviorCancel))

		// The hold ends two days in; the first canceled booking has
		// already passed by then.
		f.svc.now = func() time.Time { return testNow.Add(36 * time.Hour) }
		require.NoError(t, f.svc.ApplyHoldEnd(ctx, 1, window, holddomain.BehaviorCancel))

		var reloaded bookingdomain.Booking
		require.NoError(t, f.db.First(&reloaded, inWindow.ID).Error)
		assert.Equal(t, bookingdomain.StatusBooked, reloaded.Status)
		assert.Empty(t, reloaded.CancelReason)

		var stayed bookingdomain.Booking
		require.NoError(t, f.db.First(&stayed, past.ID).Error)
		assert.Equal(t, bookingdomain.StatusCanceled, stayed.Status)
	})

	t.Run("hold end never resurrects member-canceled bookings", func(t *testing.T) {
		f := newFixture(t, testNow)
		memberCanceled := &bookingdomain.Booking{
			OrgID: 1, PlanID: 1, MemberID: 7, Title: "self canceled",
			StartTime:    testNow.Add(48 * time.Hour),
			EndTime:      testNow.Add(49 * time.Hour),
			Status:       bookingdomain.StatusCanceled,
			CancelReason: "member request",
		}
		require.NoError(t, f.db.Create(memberCanceled).Error)

		require.NoError(t, f.svc.ApplyHoldEnd(ctx, 1, window, holddomain.BehaviorCancel))

		var reloaded bookingdomain.Booking
		require.NoError(t, f.db.First(&reloaded, memberCanceled.ID).Error)
		assert.Equal(t, bookingdomain.StatusCanceled, reloaded.Status)
	})
}
