// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"
	"estatehub-notifier/internal/service/dispatch"
	"estatehub-notifier/internal/service/subscription"
)

// Server is the thin HTTP surface over the dispatch orchestrator and the
// subscription store. Listing lifecycle events arrive here from the listing
// system; a notification failure inside a dispatch pass never fails the
// event response, only an orchestrator-level hard error does.
type Server struct {
	dispatcher    *dispatch.Service
	subscriptions *subscription.Service
	logger        logger.Logger
}

func New(dispatcher *dispatch.Service, subscriptions *subscription.Service, log logger.Logger) *Server {
	return &Server{
		dispatcher:    dispatcher,
		subscriptions: subscriptions,
		logger:        log,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Listing lifecycle events
	mux.HandleFunc("POST /events/listing-created", s.handleListingCreated)
	mux.HandleFunc("POST /events/listing-updated", s.handleListingUpdated)

	// Subscriptions
	mux.HandleFunc("POST /subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("GET /subscriptions/{id}", s.handleGetSubscription)
	mux.HandleFunc("PUT /subscriptions/{id}", s.handleUpdateSubscription)
	mux.HandleFunc("DELETE /subscriptions/{id}", s.handleDeleteSubscription)
	mux.HandleFunc("GET /subscriptions/user/{buyerId}", s.handleListSubscriptionsByUser)

	// Notifications
	mux.HandleFunc("POST /notifications", s.handleCreateNotification)
	mux.HandleFunc("GET /notifications/user/{userId}", s.handleListNotificationsByUser)
	mux.HandleFunc("DELETE /notifications/user/{userId}", s.handleClearNotificationsByUser)
	mux.HandleFunc("GET /subscriptions/{id}/notifications", s.handleListNotificationsBySubscription)
	mux.HandleFunc("PUT /notifications/{id}/status", s.handleUpdateNotificationStatus)
	mux.HandleFunc("DELETE /notifications/{id}", s.handleDeleteNotification)

	return mux
}

// ==========================
// Listing Event Handlers
// ==========================

func (s *Server) handleListingCreated(w http.ResponseWriter, r *http.Request) {
	var listing models.Listing
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid listing payload")
		return
	}

	if err := s.dispatcher.DispatchForNewListing(r.Context(), &listing); err != nil {
		s.writeTypedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

func (s *Server) handleListingUpdated(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Old *models.Listing `json:"old"`
		New *models.Listing `json:"new"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Old == nil || payload.New == nil {
		s.writeError(w, http.StatusBadRequest, "payload must carry old and new listing")
		return
	}

	if err := s.dispatcher.DispatchForUpdatedListing(r.Context(), payload.Old, payload.New); err != nil {
		s.writeTypedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

// ==========================
// Subscription Handlers
// ==========================

type subscriptionRequest struct {
	BuyerID   string          `json:"buyerId"`
	Filters   json.RawMessage `json:"filters"`
	Transport string          `json:"transport"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid subscription payload")
		return
	}

	sub, err := s.subscriptions.Create(r.Context(), req.BuyerID, req.Filters, models.Transport(req.Transport))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subscriptions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid subscription payload")
		return
	}

	sub, err := s.subscriptions.Update(r.Context(), r.PathValue("id"), req.Filters, models.Transport(req.Transport))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.subscriptions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeTypedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubscriptionsByUser(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscriptions.ListForUser(r.Context(), r.PathValue("buyerId"))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	s.writeJSON(w, http.StatusOK, subs)
}

// ==========================
// Notification Handlers
// ==========================

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string `json:"userId"`
		SubscriptionID string `json:"subscriptionId"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}

	record, err := s.dispatcher.Notify(r.Context(), req.UserID, req.SubscriptionID, req.Message)
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListNotificationsByUser(w http.ResponseWriter, r *http.Request) {
	list, err := s.dispatcher.GetNotificationsForUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleClearNotificationsByUser(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.ClearNotificationsForUser(r.Context(), r.PathValue("userId")); err != nil {
		s.writeTypedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotificationsBySubscription(w http.ResponseWriter, r *http.Request) {
	list, err := s.dispatcher.GetNotificationsForSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateNotificationStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid status payload")
		return
	}

	err := s.dispatcher.UpdateNotificationStatus(r.Context(), r.PathValue("id"), models.NotificationStatus(req.Status))
	if err != nil {
		s.writeTypedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.DeleteNotification(r.Context(), r.PathValue("id")); err != nil {
		s.writeTypedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==========================
// Response Helpers
// ==========================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encoding failed", map[string]interface{}{"error": err})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeTypedError maps dispatch error codes onto HTTP statuses. Anything
// without a mapping is a generic server error; internals stay internal.
func (s *Server) writeTypedError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := http.StatusInternalServerError

	switch code {
	case errors.ErrCodeSubscriptionNotFound,
		errors.ErrCodeNotificationNotFound,
		errors.ErrCodeUserNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeSubscriptionLimitReached:
		status = http.StatusConflict
	case errors.ErrCodeInvalidFilterFormat,
		errors.ErrCodeTransportUnsatisfiable,
		errors.ErrCodeInvalidStatusTransition,
		errors.ErrCodeInvalidListingID:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{"error": err})
		s.writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(code),
	})
}
