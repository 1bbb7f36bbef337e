package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/mail"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/service"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/store"
	"github.com/AndriiLiubov/homework-web-14/pkg/httpx"
	"github.com/AndriiLiubov/homework-web-14/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache CachePinger

	AuthService *service.AuthService
	UserService *service.UserService
	Mailer      mail.Mailer
}

func NewRouter(buildVersion string, st store.Store, cache CachePinger, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		cache:        cache,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService: r.AuthService,
		UserService: r.UserService,
		Mailer:      r.Mailer,
	}

	// POST /signup - strict rate limit by IP (public account creation)
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict rate limits by IP and by username form field so a
	// single caller cannot brute-force one account from many addresses
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.RateLimitBy(httpx.StrictLimit, httpx.FormFieldKeyExtractor("username")),
		),
	)

	// GET /refresh_token - moderate rate limit (carries a bearer credential)
	r.Mux.Handle("GET /api/auth/refresh_token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /confirmed_email/{token} - moderate rate limit
	r.Mux.Handle("GET /api/auth/confirmed_email/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleConfirmEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /request_email - strict rate limit (triggers outbound mail)
	r.Mux.Handle("POST /api/auth/request_email",
		httpx.Chain(http.HandlerFunc(h.HandleRequestEmail),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			AuthnMiddleware(r.AuthService),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("PATCH /api/users/avatar",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateAvatar),
			AuthnMiddleware(r.AuthService),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health probes - lenient rate limits (monitoring systems poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
