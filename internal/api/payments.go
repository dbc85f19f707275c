package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carpool/internal/payments"
)

type initializePaymentPayload struct {
	Amount int64  `json:"amount"`
	Email  string `json:"email"`
}

func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		notConfigured(w, "payment gateway")
		return
	}
	var payload initializePaymentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if payload.Email == "" {
		respondError(w, http.StatusBadRequest, "email required")
		return
	}

	result, err := h.payments.Initialize(r.Context(), payments.InitializeRequest{
		Email:  payload.Email,
		Amount: payload.Amount,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "payment initialization failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		notConfigured(w, "payment gateway")
		return
	}
	reference := chi.URLParam(r, "reference")
	result, err := h.payments.Verify(r.Context(), reference)
	if err != nil {
		respondError(w, http.StatusBadGateway, "payment verification failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     result.Successful(),
		"transaction": result,
	})
}
