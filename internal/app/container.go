package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/reservation-backend/internal/api"
	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/booking"
	"github.com/nekogravitycat/reservation-backend/internal/notification"
	"github.com/nekogravitycat/reservation-backend/internal/organization"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
	"github.com/nekogravitycat/reservation-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	Redis        *redis.Client // optional
	Logger       logrus.FieldLogger

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	DisplayTZName   string
	DisplayTZOffset string
	GridDays        int

	BookingRateLimit string
	SweepInterval    time.Duration

	SMTP notification.SMTPConfig
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Sweeper    *booking.Sweeper
	Hub        *notification.Hub
	Dispatcher *notification.Dispatcher
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	log := cfg.Logger

	loc, err := timeslot.ParseOffset(cfg.DisplayTZName, cfg.DisplayTZOffset)
	if err != nil {
		return nil, fmt.Errorf("invalid display zone: %w", err)
	}
	boundary := timeslot.NewBoundary(loc)

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// Organization Module
	orgRepo := organization.NewPgxRepository(cfg.DBPool)
	orgService := organization.NewService(orgRepo)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, orgService, log.WithField("module", "user"))

	// Resource Module
	resRepo := resource.NewPgxRepository(cfg.DBPool)
	resService := resource.NewService(resRepo)

	// Notification Module
	hub := notification.NewHub(log.WithField("module", "notification_hub"))
	notificationRepo := notification.NewPgxRepository(cfg.DBPool)
	notificationService := notification.NewService(notificationRepo)
	mailer := notification.NewMailer(cfg.SMTP)
	if mailer == nil {
		log.Info("SMTP not configured, email notifications disabled")
	}
	dispatcher := notification.NewDispatcher(notificationRepo, hub, mailer, userService, loc, log.WithField("module", "notification"))

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, resService, dispatcher, log.WithField("module", "booking"), booking.Config{
		Boundary: boundary,
		GridDays: cfg.GridDays,
	})
	sweeper := booking.NewSweeper(bookingService, cfg.SweepInterval, log)

	// Booking creation throttle
	rate, err := api.ParseRate(cfg.BookingRateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid booking rate limit: %w", err)
	}
	store, err := api.NewStore(cfg.Redis, "create_booking", rate.Period)
	if err != nil {
		return nil, err
	}
	if cfg.Redis == nil {
		log.Warn("REDIS_URL not set, booking rate limit is per process")
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		Logger:              log,
		UserService:         userService,
		OrgService:          orgService,
		ResService:          resService,
		BookingService:      bookingService,
		NotificationService: notificationService,
		Hub:                 hub,
		JWTManager:          jwtManager,
		BookingLimit:        api.RateLimit(store, rate),
		Health: func(c *gin.Context) error {
			return cfg.DBPool.Ping(c.Request.Context())
		},
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Sweeper:    sweeper,
		Hub:        hub,
		Dispatcher: dispatcher,
	}, nil
}
