package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"carpool/internal/trip"
)

type registerPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

type authResponse struct {
	User  trip.User `json:"user"`
	Token string    `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		notConfigured(w, "user store")
		return
	}
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if payload.Email == "" || !strings.Contains(payload.Email, "@") {
		respondError(w, http.StatusBadRequest, "valid email required")
		return
	}
	if len(payload.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if payload.FirstName == "" || payload.LastName == "" {
		respondError(w, http.StatusBadRequest, "first and last name required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	user := trip.User{
		ID:        uuid.NewString(),
		Email:     payload.Email,
		Password:  string(hash),
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Role:      trip.RolePassenger,
		IsActive:  true,
		Preferences: trip.NotificationPreferences{
			Email: true,
			Push:  true,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		respondDomainError(w, err)
		return
	}

	token := ""
	if h.tokens != nil {
		if token, err = h.tokens.GenerateToken(user.ID, user.Role); err != nil {
			respondDomainError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		notConfigured(w, "user store")
		return
	}
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), strings.TrimSpace(payload.Email))
	if err != nil {
		// Same answer for unknown email and wrong password.
		respondDomainError(w, trip.ErrInvalidCredentials)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)) != nil {
		respondDomainError(w, trip.ErrInvalidCredentials)
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusForbidden, "account deactivated")
		return
	}

	token := ""
	if h.tokens != nil {
		if token, err = h.tokens.GenerateToken(user.ID, user.Role); err != nil {
			respondDomainError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		notConfigured(w, "user store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetUser(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
