package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/reservation-backend/internal/booking/http"
	"github.com/nekogravitycat/reservation-backend/internal/notification"
	notificationHttp "github.com/nekogravitycat/reservation-backend/internal/notification/http"
	"github.com/nekogravitycat/reservation-backend/internal/organization"
	orgHttp "github.com/nekogravitycat/reservation-backend/internal/organization/http"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/logger"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
	resourceHttp "github.com/nekogravitycat/reservation-backend/internal/resource/http"
	"github.com/nekogravitycat/reservation-backend/internal/user"
	userHttp "github.com/nekogravitycat/reservation-backend/internal/user/http"
)

// Config collects what the router needs from the container.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       logrus.FieldLogger

	UserService         user.Service
	OrgService          organization.Service
	ResService          resource.Service
	BookingService      booking.Service
	NotificationService notification.Service
	Hub                 *notification.Hub
	JWTManager          *auth.JWTManager

	// BookingLimit throttles booking creation. Nil disables it.
	BookingLimit gin.HandlerFunc
	// Health reports readiness; nil always reports ok.
	Health func(c *gin.Context) error
}

// allowedOrigins returns the CORS origins for the environment.
func allowedOrigins(cfg Config) []string {
	if !cfg.IsProduction {
		return []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}
	var origins []string
	for _, o := range strings.Split(cfg.ProdOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: structured request log, also exposes a request-scoped entry to handlers.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(logger.GinMiddleware(cfg.Logger), gin.Recovery())

	origins := allowedOrigins(cfg)
	corsConfig := cors.DefaultConfig()
	if len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		// cors.New panics without any origin rule; an empty production list allows nothing cross-site.
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c); err != nil {
				logger.FromGin(c).WithError(err).Error("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	orgHandler := orgHttp.NewHandler(cfg.OrgService)
	resHandler := resourceHttp.NewHandler(cfg.ResService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	notificationHandler := notificationHttp.NewHandler(cfg.NotificationService, cfg.Hub, checkOrigin(origins, cfg.IsProduction))

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		orgHttp.RegisterRoutes(v1, orgHandler, authMiddleware)
		resourceHttp.RegisterRoutes(v1, resHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, cfg.BookingLimit)
		notificationHttp.RegisterRoutes(v1, notificationHandler, authMiddleware)
	}

	return r
}

// checkOrigin applies the CORS origin list to WebSocket upgrades in production.
func checkOrigin(origins []string, production bool) func(r *http.Request) bool {
	if !production {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
