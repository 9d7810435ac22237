package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"fitdesk/internal/config"
	"fitdesk/internal/database"
	bookingdomain "fitdesk/internal/domain/booking"
	"fitdesk/internal/domain/events"
	holddomain "fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/member"
	plandomain "fitdesk/internal/domain/plan"
	"fitdesk/internal/modules/booking"
	"fitdesk/internal/modules/hold"
	"fitdesk/internal/modules/plan"
)

// The lifecycle worker drives time-based transitions: holds activate
// when their window opens, expire when it closes, and overdue plans are
// marked expired. The API serves correct statuses regardless (they are
// recomputed on read); this keeps the stored rows and the event feed
// caught up.
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	planRepo := plandomain.NewRepository(db)
	holdRepo := holddomain.NewRepository(db)
	bookingRepo := bookingdomain.NewRepository(db)
	memberRepo := member.NewRepository(db)

	publisher := events.NewMultiPublisher(log,
		events.NewLogPublisher(log),
		events.NewStore(db),
		events.NewMetricsPublisher(),
	)

	planService := plan.NewService(db, planRepo, holdRepo, memberRepo, publisher, log)
	bookingService := booking.NewService(bookingRepo, planService, planService, log)
	holdService := hold.NewService(db, holdRepo, planRepo, bookingService, publisher, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("interval", cfg.WorkerInterval.String()).Info("lifecycle worker started")

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	runSweep(ctx, log, holdService, planService)
	for {
		select {
		case <-ctx.Done():
			log.Info("lifecycle worker stopping")
			return
		case <-ticker.C:
			runSweep(ctx, log, holdService, planService)
		}
	}
}

func runSweep(ctx context.Context, log *logrus.Logger, holds *hold.Service, plans *plan.Service) {
	if n, err := holds.ActivateDueHolds(ctx); err != nil {
		log.WithError(err).Error("hold activation sweep failed")
	} else if n > 0 {
		log.WithField("activated", n).Info("holds activated")
	}

	if n, err := holds.ExpireDueHolds(ctx); err != nil {
		log.WithError(err).Error("hold expiry sweep failed")
	} else if n > 0 {
		log.WithField("expired", n).Info("holds expired")
	}

	if n, err := plans.ExpireOverduePlans(ctx); err != nil {
		log.WithError(err).Error("plan expiry sweep failed")
	} else if n > 0 {
		log.WithField("expired", n).Info("plans expired")
	}
}
