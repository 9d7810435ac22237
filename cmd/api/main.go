package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"fitdesk/internal/config"
	"fitdesk/internal/database"
	bookingdomain "fitdesk/internal/domain/booking"
	"fitdesk/internal/domain/events"
	holddomain "fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/member"
	plandomain "fitdesk/internal/domain/plan"
	"fitdesk/internal/middleware"
	"fitdesk/internal/modules/auth"
	"fitdesk/internal/modules/booking"
	eventsapi "fitdesk/internal/modules/events"
	"fitdesk/internal/modules/hold"
	"fitdesk/internal/modules/plan"
	jwtsvc "fitdesk/internal/pkg/jwt"
)

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

	eventStore := events.NewStore(db)
	publisher := events.NewMultiPublisher(log,
		events.NewLogPublisher(log),
		eventStore,
		events.NewMetricsPublisher(),
	)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	planService := plan.NewService(db, planRepo, holdRepo, memberRepo, publisher, log)
	bookingService := booking.NewService(bookingRepo, planService, planService, log)
	holdService := hold.NewService(db, holdRepo, planRepo, bookingService, publisher, log)
	authService := auth.NewService(memberRepo, j)

	planHandler := plan.NewHandler(planService)
	holdHandler := hold.NewHandler(holdService)
	bookingHandler := booking.NewHandler(bookingService)
	authHandler := auth.NewHandler(authService)
	eventsHandler := eventsapi.NewHandler(eventStore)

	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" || cfg.AppEnv == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			planHandler.RegisterRoutes(protected)
			holdHandler.RegisterRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			eventsHandler.RegisterRoutes(protected)
		}
	}

	log.WithField("addr", cfg.HTTPAddr).Info("starting API server")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
