package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"EchoFM/logger"
)

// ListPlansHandler handles GET /api/subscription/plans.
func (h *APIHandler) ListPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subsRepo.ListPlans(r.Context())
	if err != nil {
		logger.Error("failed to list plans", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// SubscribeHandler handles POST /api/subscription. Any active subscription is
// cancelled before the new one starts.
func (h *APIHandler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		PlanID        int64  `json:"planId"`
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID <= 0 {
		respondError(w, http.StatusBadRequest, "valid planId is required")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}

	plan, err := h.subsRepo.GetPlan(r.Context(), req.PlanID)
	if err != nil {
		logger.Error("failed to get plan", logger.Int64("planId", req.PlanID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get plan")
		return
	}
	if plan == nil {
		respondError(w, http.StatusNotFound, "plan not found")
		return
	}

	sub, err := h.subsRepo.Subscribe(r.Context(), userID, plan.ID, req.PaymentMethod, plan.Price)
	if err != nil {
		logger.Error("failed to subscribe",
			logger.Int64("userId", userID), logger.Int64("planId", plan.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	logger.Info("subscription created",
		logger.Int64("userId", userID), logger.Int64("planId", plan.ID))
	respondJSON(w, http.StatusCreated, sub)
}

// CancelSubscriptionHandler handles DELETE /api/subscription.
func (h *APIHandler) CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.subsRepo.Cancel(r.Context(), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "no active subscription")
			return
		}
		logger.Error("failed to cancel subscription",
			logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to cancel subscription")
		return
	}

	logger.Info("subscription cancelled", logger.Int64("userId", userID))
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// SubscriptionHistoryHandler handles GET /api/subscription/history.
func (h *APIHandler) SubscriptionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	subs, err := h.subsRepo.HistoryByUser(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list subscriptions", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	respondJSON(w, http.StatusOK, subs)
}
