package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/http/handlers"
	"github.com/geocoder89/contacthub/internal/http/middlewares"
	"github.com/geocoder89/contacthub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	serviceName     = "contacthub-api"
	maxJSONBodySize = 1 << 20
)

// UserStore is everything the user routes and the auth gate need from the
// credential store.
type UserStore interface {
	handlers.UserStore
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Tokens issues session tokens at login and verifies them at the gate.
type Tokens interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

type Dependencies struct {
	Log  *slog.Logger
	Env  string
	Prom *observability.Prom
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Store        handlers.Pinger
	Users        UserStore
	Contacts     handlers.ContactsStore
	Tokens       Tokens
	Verification handlers.VerificationService
	Avatars      handlers.AvatarUpdater

	// AvatarDir is served at /avatars when set (local avatar storage).
	AvatarDir       string
	UploadTmpDir    string
	MaxUploadBytes  int64
	RequireVerified bool
	CORSOrigins     []string
}

func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// middleware
	r.Use(middlewares.Recovery(log))
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.CORSOrigins))

	r.NoRoute(handlers.NotFound)
	r.NoMethod(handlers.NotFound)

	// health
	health := handlers.NewHealthHandler(deps.Store)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.AvatarDir != "" {
		r.StaticFS("/avatars", gin.Dir(deps.AvatarDir, false))
	}

	gate := middlewares.NewAuthMiddleware(deps.Tokens, deps.Users, deps.Prom, log).RequireAuth()
	jsonBody := []gin.HandlerFunc{middlewares.MaxBodyBytes(maxJSONBodySize), middlewares.RequireJSON()}

	usersHandler := handlers.NewUsersHandler(
		deps.Users,
		deps.Tokens,
		deps.Verification,
		deps.Avatars,
		deps.Prom,
		log,
		handlers.UsersHandlerConfig{
			RequireVerified: deps.RequireVerified,
			UploadTmpDir:    deps.UploadTmpDir,
		},
	)

	users := r.Group("/api/users")
	{
		users.POST("/signup", with(jsonBody, usersHandler.SignUp)...)
		users.POST("/login", with(jsonBody, usersHandler.Login)...)
		users.GET("/verify/:token", usersHandler.VerifyEmail)
		users.POST("/verify", with(jsonBody, usersHandler.ResendVerification)...)

		users.GET("/logout", gate, usersHandler.Logout)
		users.GET("/current", gate, usersHandler.Current)
		users.PATCH("", with(append([]gin.HandlerFunc{gate}, jsonBody...), usersHandler.UpdateSubscription)...)
		users.PATCH("/avatars", gate, middlewares.MaxBodyBytes(uploadLimit(deps.MaxUploadBytes)), usersHandler.UpdateAvatar)
	}

	contactsHandler := handlers.NewContactsHandler(deps.Contacts, log)

	contacts := r.Group("/api/contacts", gate)
	{
		contacts.GET("", contactsHandler.List)
		contacts.POST("", with(jsonBody, contactsHandler.Create)...)
		contacts.GET("/:id", contactsHandler.Get)
		contacts.PUT("/:id", with(jsonBody, contactsHandler.Update)...)
		contacts.PATCH("/:id/favorite", with(jsonBody, contactsHandler.UpdateFavorite)...)
		contacts.DELETE("/:id", contactsHandler.Delete)
	}

	return r
}

func with(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, h)
}

func uploadLimit(max int64) int64 {
	if max <= 0 {
		return 5 << 20
	}
	// multipart framing on top of the file itself
	return max + 64<<10
}
