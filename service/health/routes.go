package health

import (
	"context"
	"net/http"
	"time"

	"github.com/KAsare1/subscriptions-server/db"
	"github.com/KAsare1/subscriptions-server/service/apierror"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	return &Handler{db: db, log: log}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
}

// GetHealth reports 200 when the database answers a ping, 503 otherwise.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx, h.db); err != nil {
		h.log.Warn("database ping failed", zap.Error(err))
		apierror.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	apierror.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
