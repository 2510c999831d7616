package subscription

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/utils"
	"github.com/KAsare1/subscriptions-server/service/apierror"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBodyBytes = 1 << 20

// SubscriptionHandler serves the /subscriptions resource for the request owner.
type SubscriptionHandler struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewSubscriptionHandler creates a handler backed by db.
func NewSubscriptionHandler(db *gorm.DB, log *zap.Logger) *SubscriptionHandler {
	return NewHandlerWithStore(NewStore(db), log)
}

func NewHandlerWithStore(store Store, log *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{store: store, log: log, now: time.Now}
}

// RegisterRoutes registers all subscription routes. The router must attach
// the owner id to the request context. Each path gets its own route so a
// wrong method on a known path answers 405 rather than 404.
func (h *SubscriptionHandler) RegisterRoutes(router *mux.Router) {
	collection := router.Path("/subscriptions").Subrouter()
	collection.Methods(http.MethodGet).HandlerFunc(h.ListSubscriptions)
	collection.Methods(http.MethodPost).HandlerFunc(h.CreateSubscription)

	// Must be registered ahead of /{id}.
	router.HandleFunc("/subscriptions/stats", h.GetStats).Methods(http.MethodGet)

	item := router.Path("/subscriptions/{id}").Subrouter()
	item.Methods(http.MethodGet).HandlerFunc(h.GetSubscription)
	item.Methods(http.MethodPatch).HandlerFunc(h.UpdateSubscription)
	item.Methods(http.MethodDelete).HandlerFunc(h.DeleteSubscription)
}

// ListSubscriptions handles GET /subscriptions with filters and pagination.
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	items, total, err := h.store.List(r.Context(), ownerID, q)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, NewListResult(items, total, q))
}

// CreateSubscription handles POST /subscriptions.
func (h *SubscriptionHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	sub, err := ParseCreate(body)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	sub.UserID = ownerID

	if err := h.store.Create(r.Context(), sub); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.log.Info("subscription created", zap.String("id", sub.ID), zap.String("user_id", ownerID))
	h.respondWithJSON(w, http.StatusCreated, sub)
}

// GetSubscription handles GET /subscriptions/{id}. Existence is checked
// before ownership, so a foreign id answers 403 and an unknown id 404.
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	sub, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if sub.UserID != ownerID {
		h.respondWithError(w, r, apierror.Forbidden("Forbidden"))
		return
	}

	h.respondWithJSON(w, http.StatusOK, sub)
}

// UpdateSubscription handles PATCH /subscriptions/{id}.
func (h *SubscriptionHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	patch, err := ParseUpdate(body)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	updated, err := h.store.Update(r.Context(), ownerID, mux.Vars(r)["id"], patch)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, updated)
}

// DeleteSubscription handles DELETE /subscriptions/{id}.
func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.store.Delete(r.Context(), ownerID, id); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.log.Info("subscription deleted", zap.String("id", id), zap.String("user_id", ownerID))
	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /subscriptions/stats.
func (h *SubscriptionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	subs, err := h.store.ListByCurrency(r.Context(), ownerID, q.Currency)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, ComputeStats(subs, q.Currency, h.now()))
}

func (h *SubscriptionHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		h.respondWithError(w, r, apierror.Unexpected(err))
		return "", false
	}
	return ownerID, true
}

func (h *SubscriptionHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierror.WithStatus(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return nil, apierror.WithStatus(http.StatusBadRequest, "Could not read request body")
	}
	return body, nil
}

// Helper function to respond with an error
func (h *SubscriptionHandler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apierror.Write(w, r, h.log, err)
}

// Helper function to respond with JSON
func (h *SubscriptionHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
