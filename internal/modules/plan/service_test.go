package plan

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

	"fitdesk/internal/domain/events"
	holddomain "fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/member"
	plandomain "fitdesk/internal/domain/plan"
)

// recorder captures published events for assertions.
type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) names() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&member.Org{}, &member.Member{}, &member.StaffUser{},
		&plandomain.Template{}, &plandomain.Plan{},
		&holddomain.Hold{},
		&events.StoredEvent{},
	))
	return db
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	rec     *recorder
	org     member.Org
	member  member.Member
	monthly plandomain.Template
	pack    plandomain.Template
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{db: db, rec: &recorder{}}

	f.org = member.Org{Name: "Test Gym", Timezone: "UTC", IsActive: true}
	require.NoError(t, db.Create(&f.org).Error)
	f.member = member.Member{OrgID: f.org.ID, FirstName: "Anna", LastName: "Keller", IsActive: true}
	require.NoError(t, db.Create(&f.member).Error)

	ten := 10
	f.monthly = plandomain.Template{
		OrgID: f.org.ID, Name: "Monthly", Kind: plandomain.KindMembership,
		Venue: plandomain.VenueInPerson, Price: 60, Currency: "EUR",
		DurationDays: 30, IsActive: true,
	}
	require.NoError(t, db.Create(&f.monthly).Error)
	f.pack = plandomain.Template{
		OrgID: f.org.ID, Name: "10 Pack", Kind: plandomain.KindProgram,
		Venue: plandomain.VenueInPerson, Price: 120, Currency: "EUR",
		DurationDays: 90, SessionQuota: &ten, IsActive: true,
	}
	require.NoError(t, db.Create(&f.pack).Error)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f.svc = NewService(db,
		plandomain.NewRepository(db),
		holddomain.NewRepository(db),
		member.NewRepository(db),
		f.rec, log)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) purchase(t *testing.T, templateID int64) *plandomain.Plan {
	t.Helper()
	p, err := f.svc.Activate(context.Background(), f.org.ID, PurchaseInput{
		MemberID: f.member.ID, TemplateID: templateID,
	})
	require.NoError(t, err)
	return p
}

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func TestActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("starts active when the start date is today", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		assert.Equal(t, plandomain.StatusActive, p.Status)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), p.StartDate)
		assert.Equal(t, time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC), p.EndDate)
		assert.NotEmpty(t, p.UUID)
		assert.Equal(t, []string{events.PlanCreated}, f.rec.names())
	})

	t.Run("starts upcoming with a future start date", func(t *testing.T) {
		f := newFixture(t, testNow)
		p, err := f.svc.Activate(ctx, f.org.ID, PurchaseInput{
			MemberID: f.member.ID, TemplateID: f.monthly.ID,
			StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusUpcoming, p.Status)
	})

	t.Run("copies the session quota from the template", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.pack.ID)
		require.NotNil(t, p.TotalQuota)
		assert.Equal(t, 10, *p.TotalQuota)
		assert.Equal(t, 0, p.TotalQuotaConsumed)
	})

	t.Run("applies a percent discount", func(t *testing.T) {
		f := newFixture(t, testNow)
		p, err := f.svc.Activate(ctx, f.org.ID, PurchaseInput{
			MemberID: f.member.ID, TemplateID: f.monthly.ID,
			DiscountValue: 25, DiscountUnit: plandomain.DiscountPercent,
		})
		require.NoError(t, err)
		assert.InDelta(t, 45.0, p.Price, 0.001)
	})

	t.Run("unknown template", func(t *testing.T) {
		f := newFixture(t, testNow)
		_, err := f.svc.Activate(ctx, f.org.ID, PurchaseInput{MemberID: f.member.ID, TemplateID: 9999})
		assert.ErrorIs(t, err, plandomain.ErrTemplateNotFound)
	})

	t.Run("unknown member", func(t *testing.T) {
		f := newFixture(t, testNow)
		_, err := f.svc.Activate(ctx, f.org.ID, PurchaseInput{MemberID: 9999, TemplateID: f.monthly.ID})
		assert.ErrorIs(t, err, member.ErrMemberNotFound)
	})

	t.Run("template from another org is invisible", func(t *testing.T) {
		f := newFixture(t, testNow)
		other := member.Org{Name: "Other Gym", IsActive: true}
		require.NoError(t, f.db.Create(&other).Error)

		_, err := f.svc.Activate(ctx, other.ID, PurchaseInput{MemberID: f.member.ID, TemplateID: f.monthly.ID})
		assert.Error(t, err)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels an active plan", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		canceled, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "moving away")
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusCanceled, canceled.Status)
		assert.Equal(t, "moving away", canceled.CancelReason)
		assert.NotNil(t, canceled.CanceledAt)
		assert.Contains(t, f.rec.names(), events.PlanCanceled)
	})

	t.Run("canceling twice is rejected", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		_, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "first")
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, f.org.ID, p.ID, "second")
		assert.ErrorIs(t, err, plandomain.ErrIneligibleTransition)
	})

	t.Run("expired plans cannot be canceled", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		// Move the clock past the end date; the stored row still says
		// active but the recomputed status is expired.
		f.svc.now = func() time.Time { return testNow.AddDate(0, 2, 0) }
		_, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "too late")
		assert.ErrorIs(t, err, plandomain.ErrIneligibleTransition)
	})

	t.Run("canceling a plan on hold terminates the hold and shifts the end date", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)
		originalEnd := p.EndDate

		// A seven-day hold currently active on the plan.
		h := holddomain.Hold{
			OrgID: f.org.ID, PlanID: p.ID, MemberID: f.member.ID,
			StartDateTime: testNow.Add(-24 * time.Hour),
			EndDateTime:   testNow.Add(6 * 24 * time.Hour),
			Status:        holddomain.StatusActive,
		}
		require.NoError(t, f.db.Create(&h).Error)
		require.NoError(t, f.db.Model(&plandomain.Plan{}).Where("id = ?", p.ID).
			Update("status", plandomain.StatusHold).Error)

		canceled, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "gone")
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusCanceled, canceled.Status)
		assert.Equal(t, originalEnd.AddDate(0, 0, 7), canceled.EndDate)

		var reloaded holddomain.Hold
		require.NoError(t, f.db.First(&reloaded, h.ID).Error)
		assert.Equal(t, holddomain.StatusCanceled, reloaded.Status)
		assert.Contains(t, f.rec.names(), events.HoldCanceled)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t, testNow)
		_, err := f.svc.Cancel(ctx, f.org.ID, 12345, "x")
		assert.ErrorIs(t, err, plandomain.ErrNotFound)
	})
}

func TestReinstate(t *testing.T) {
	ctx := context.Background()

	t.Run("restores a canceled plan to active", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)
		_, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "oops")
		require.NoError(t, err)

		restored, err := f.svc.Reinstate(ctx, f.org.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusActive, restored.Status)
		assert.Empty(t, restored.CancelReason)
		assert.Nil(t, restored.CanceledAt)
		assert.Contains(t, f.rec.names(), events.PlanRestored)
	})

	t.Run("restores to upcoming before the start date", func(t *testing.T) {
		f := newFixture(t, testNow)
		p, err := f.svc.Activate(ctx, f.org.ID, PurchaseInput{
			MemberID: f.member.ID, TemplateID: f.monthly.ID,
			StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, f.org.ID, p.ID, "changed mind")
		require.NoError(t, err)

		restored, err := f.svc.Reinstate(ctx, f.org.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusUpcoming, restored.Status)
	})

	t.Run("restores to expired past the end date", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)
		_, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "pause")
		require.NoError(t, err)

		f.svc.now = func() time.Time { return testNow.AddDate(0, 2, 0) }
		restored, err := f.svc.Reinstate(ctx, f.org.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusExpired, restored.Status)
	})

	t.Run("only canceled plans reinstate", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		_, err := f.svc.Reinstate(ctx, f.org.ID, p.ID)
		assert.ErrorIs(t, err, plandomain.ErrIneligibleTransition)
	})
}

func TestTransferAndUpgrade(t *testing.T) {
	ctx := context.Background()

	t.Run("transfer cancels the source and creates the target atomically", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		created, err := f.svc.Transfer(ctx, f.org.ID, p.ID, f.pack.ID)
		require.NoError(t, err)
		assert.Equal(t, f.pack.ID, created.TemplateID)
		assert.Equal(t, plandomain.StatusActive, created.Status)

		var source plandomain.Plan
		require.NoError(t, f.db.First(&source, p.ID).Error)
		assert.Equal(t, plandomain.StatusCanceled, source.Status)
		assert.Equal(t, "transfer", source.CancelReason)

		names := f.rec.names()
		assert.Contains(t, names, events.PlanCanceled)
		// Two creations: the purchase and the transfer target.
		assert.Equal(t, 2, countOf(names, events.PlanCreated))
	})

	t.Run("upgrade records its own kind", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		_, err := f.svc.Upgrade(ctx, f.org.ID, p.ID, f.pack.ID)
		require.NoError(t, err)

		var source plandomain.Plan
		require.NoError(t, f.db.First(&source, p.ID).Error)
		assert.Equal(t, "upgrade", source.CancelReason)
	})

	t.Run("a held plan cannot transfer", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)
		require.NoError(t, f.db.Model(&plandomain.Plan{}).Where("id = ?", p.ID).
			Update("status", plandomain.StatusHold).Error)

		_, err := f.svc.Transfer(ctx, f.org.ID, p.ID, f.pack.ID)
		assert.ErrorIs(t, err, plandomain.ErrIneligibleTransition)

		// Nothing was created.
		var n int64
		require.NoError(t, f.db.Model(&plandomain.Plan{}).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unknown target template leaves the source untouched", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		_, err := f.svc.Transfer(ctx, f.org.ID, p.ID, 9999)
		assert.ErrorIs(t, err, plandomain.ErrTemplateNotFound)

		var source plandomain.Plan
		require.NoError(t, f.db.First(&source, p.ID).Error)
		assert.Equal(t, plandomain.StatusActive, source.Status)
	})
}

func TestConsumeQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes sessions and exhaustion flips to expired_limit", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.pack.ID)

		updated, err := f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 9)
		require.NoError(t, err)
		assert.Equal(t, 9, updated.TotalQuotaConsumed)
		assert.Equal(t, plandomain.StatusActive, updated.Status)

		updated, err = f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 10, updated.TotalQuotaConsumed)
		assert.Equal(t, plandomain.StatusExpiredLimit, updated.Status)
	})

	t.Run("exhausting a started plan whose row still says upcoming", func(t *testing.T) {
		f := newFixture(t, testNow)
		p, err := f.svc.Activate(ctx, f.org.ID, PurchaseInput{
			MemberID: f.member.ID, TemplateID: f.pack.ID,
			StartDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Equal(t, plandomain.StatusUpcoming, p.Status)

		// Past the start date nothing has rewritten the stored status
		// yet; burning the whole quota must still land in expired_limit.
		f.svc.now = func() time.Time { return time.Date(2026, 3, 25, 10, 0, 0, 0, time.UTC) }
		updated, err := f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, updated.TotalQuotaConsumed)
		assert.Equal(t, plandomain.StatusExpiredLimit, updated.Status)
	})

	t.Run("over-consumption fails and changes nothing", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.pack.ID)

		_, err := f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 11)
		var qe *plandomain.QuotaError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, 11, qe.Requested)
		assert.Equal(t, 10, qe.Remaining)

		var reloaded plandomain.Plan
		require.NoError(t, f.db.First(&reloaded, p.ID).Error)
		assert.Equal(t, 0, reloaded.TotalQuotaConsumed)
		assert.Equal(t, plandomain.StatusActive, reloaded.Status)
	})

	t.Run("consuming on an exhausted plan reports a quota error", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.pack.ID)
		_, err := f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 10)
		require.NoError(t, err)

		_, err = f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 1)
		var qe *plandomain.QuotaError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, 0, qe.Remaining)
	})

	t.Run("unlimited plans consume freely", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		updated, err := f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 50)
		require.NoError(t, err)
		assert.Equal(t, 50, updated.TotalQuotaConsumed)
		assert.Equal(t, plandomain.StatusActive, updated.Status)
	})

	t.Run("canceled plans reject consumption", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.pack.ID)
		_, err := f.svc.Cancel(ctx, f.org.ID, p.ID, "gone")
		require.NoError(t, err)

		_, err = f.svc.ConsumeQuota(ctx, f.org.ID, p.ID, 1)
		assert.ErrorIs(t, err, plandomain.ErrInvalidState)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete is idempotent", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)

		deleted, err := f.svc.Delete(ctx, f.org.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusDeleted, deleted.Status)
		assert.NotNil(t, deleted.DeletedAt)

		again, err := f.svc.Delete(ctx, f.org.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, plandomain.StatusDeleted, again.Status)

		// PlanDeleted fires once.
		assert.Equal(t, 1, countOf(f.rec.names(), events.PlanDeleted))
	})

	t.Run("deleted plans reject everything else", func(t *testing.T) {
		f := newFixture(t, testNow)
		p := f.purchase(t, f.monthly.ID)
		_, err := f.svc.Delete(ctx, f.org.ID, p.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, f.org.ID, p.ID, "x")
		assert.ErrorIs(t, err, plandomain.ErrIneligibleTransition)
		_, err = f.svc.Reinstate(ctx, f.org.ID, p.ID)
		assert.ErrorIs(t, err, plandomain.ErrIneligibleTransition)
	})
}

func TestExpireOverduePlans(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, testNow)
	p := f.purchase(t, f.monthly.ID)

	// Nothing is overdue yet.
	n, err := f.svc.ExpireOverduePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.svc.now = func() time.Time { return testNow.AddDate(0, 2, 0) }
	n, err = f.svc.ExpireOverduePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var reloaded plandomain.Plan
	require.NoError(t, f.db.First(&reloaded, p.ID).Error)
	assert.Equal(t, plandomain.StatusExpired, reloaded.Status)

	// The sweep is idempotent.
	n, err = f.svc.ExpireOverduePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func countOf(names []string, want string) int {
	n := 0
	for _, name := range names {
		if name == want {
			n++
		}
	}
	return n
}
