package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/utils"
	"github.com/KAsare1/subscriptions-server/config"
	"github.com/KAsare1/subscriptions-server/service/apierror"
	"github.com/KAsare1/subscriptions-server/service/health"
	"github.com/KAsare1/subscriptions-server/service/subscription"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type APIServer struct {
	cfg    *config.Config
	db     *gorm.DB
	log    *zap.Logger
	server *http.Server
}

func NewApiServer(cfg *config.Config, db *gorm.DB, log *zap.Logger) *APIServer {
	s := &APIServer{
		cfg: cfg,
		db:  db,
		log: log,
	}
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the full middleware chain around the router.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(securityHeaders)
	router.Use(utils.OwnerMiddleware(s.cfg.DemoUserID))

	health.NewHandler(s.db, s.log).RegisterRoutes(router)
	subscription.NewSubscriptionHandler(s.db, s.log).RegisterRoutes(router)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, r, s.log, apierror.WithStatus(http.StatusNotFound, "Not Found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, r, s.log, apierror.WithStatus(http.StatusMethodNotAllowed, "Method Not Allowed"))
	})

	stdLog := zap.NewStdLog(s.log)

	var h http.Handler = router
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{s.cfg.CORSOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(stdLog),
		handlers.PrintRecoveryStack(s.cfg.IsDevelopment()),
	)(h)
	return handlers.CombinedLoggingHandler(stdLog.Writer(), h)
}

// Run serves until Shutdown is called.
func (s *APIServer) Run() error {
	s.log.Info("server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
