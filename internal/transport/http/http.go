package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/activefrequency/tranquilo-shopify/internal/service/services/relaysvc"
	"github.com/activefrequency/tranquilo-shopify/internal/transport/http/webhook"
	"github.com/activefrequency/tranquilo-shopify/pkg/http/middleware/trace"
	"github.com/activefrequency/tranquilo-shopify/pkg/logger"
	"github.com/activefrequency/tranquilo-shopify/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

const greeting = "Hello, world! What do you want?"

type service interface {
	Relay(ctx context.Context, rawBody []byte, signature string) (relaysvc.Result, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/", h.hello)
	h.router.Post("/webhook", h.webhook)
	h.router.Method(http.MethodGet, "/metrics", metrics.Handler())
}

func (h *HTTPTransport) webhook(w http.ResponseWriter, r *http.Request) {
	webhook.Handle(w, r, h.service)
}

func (h *HTTPTransport) hello(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte(greeting)); err != nil {
		slog.ErrorContext(r.Context(), "Error sending greeting", "error", err)
	}
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
