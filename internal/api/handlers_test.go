package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"carpool/internal/auth"
	"carpool/internal/notify"
	"carpool/internal/storage"
	"carpool/internal/trip"
)

// memUsers is an in-memory UserDB for handler tests.
type memUsers struct {
	mu    sync.Mutex
	users map[string]trip.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]trip.User)}
}

func (m *memUsers) CreateUser(_ context.Context, u trip.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return trip.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetUser(_ context.Context, id string) (trip.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return trip.User{}, trip.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (trip.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return trip.User{}, trip.ErrUserNotFound
}

func (m *memUsers) SetUserActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return trip.ErrUserNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memUsers) UpdatePreferences(_ context.Context, id string, email, push, sms *bool) (trip.NotificationPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return trip.NotificationPreferences{}, trip.ErrUserNotFound
	}
	if email != nil {
		u.Preferences.Email = *email
	}
	if push != nil {
		u.Preferences.Push = *push
	}
	if sms != nil {
		u.Preferences.SMS = *sms
	}
	m.users[id] = u
	return u.Preferences, nil
}

func (m *memUsers) ListUsers(_ context.Context, _ storage.UserFilter, limit, offset int) ([]trip.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []trip.User
	for _, u := range m.users {
		out = append(out, u)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) CountUsers(_ context.Context, _ storage.UserFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUsers) ActiveUserIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, u := range m.users {
		if u.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type testEnv struct {
	router chi.Router
	store  *trip.Store
	tokens *auth.Manager
	users  *memUsers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  trip.NewStore(),
		tokens: auth.NewManager("handler-test-secret", time.Hour),
		users:  newMemUsers(),
	}
	hub := trip.NewHub()
	go hub.Run()
	env.router = chi.NewRouter()
	AttachRoutes(env.router, Deps{
		Store:    env.store,
		Hub:      hub,
		Tokens:   env.tokens,
		Users:    env.users,
		Notifier: notify.New(nil, nil),
	})
	return env
}

func (e *testEnv) token(t *testing.T, userID string, role trip.Role) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createRide(t *testing.T, driverID string, seats int) trip.Ride {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/rides", e.token(t, driverID, trip.RoleDriver), map[string]any{
		"origin":         map[string]any{"address": "Lagos", "latitude": 6.5244, "longitude": 3.3792},
		"destination":    map[string]any{"address": "Ibadan", "latitude": 7.3775, "longitude": 3.947},
		"departureTime":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"availableSeats": seats,
		"pricePerSeat":   1500,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ride status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ride trip.Ride
	if err := json.Unmarshal(rec.Body.Bytes(), &ride); err != nil {
		t.Fatalf("decode ride: %v", err)
	}
	return ride
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":     "rider@example.com",
		"password":  "password123",
		"firstName": "Pelumi",
		"lastName":  "Rider",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Token == "" {
		t.Error("register returned no token")
	}
	if created.User.Role != trip.RolePassenger {
		t.Errorf("role = %s, want passenger", created.User.Role)
	}

	// Same email again conflicts.
	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":     "rider@example.com",
		"password":  "password123",
		"firstName": "Other",
		"lastName":  "Person",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "rider@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "rider@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing email", map[string]any{"password": "password123", "firstName": "A", "lastName": "B"}},
		{"bad email", map[string]any{"email": "nope", "password": "password123", "firstName": "A", "lastName": "B"}},
		{"short password", map[string]any{"email": "a@b.co", "password": "short", "firstName": "A", "lastName": "B"}},
		{"missing name", map[string]any{"email": "a@b.co", "password": "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateRideRequiresDriverRole(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/rides", env.token(t, "rider-1", trip.RolePassenger), map[string]any{})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/rides", "", map[string]any{})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestBookRide(t *testing.T) {
	env := newTestEnv(t)
	ride := env.createRide(t, "driver-1", 3)
	riderToken := env.token(t, "rider-1", trip.RolePassenger)

	rec := env.do(t, http.MethodPut, "/api/rides/"+ride.ID+"/book", riderToken, map[string]any{
		"seatsBooked":      2,
		"paymentReference": "pay-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("book status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if got := trip.RemainingSeats(resp.Ride); got != 1 {
		t.Errorf("remaining = %d, want 1", got)
	}

	// Over-capacity request is rejected and changes nothing.
	rec = env.do(t, http.MethodPut, "/api/rides/"+ride.ID+"/book", env.token(t, "rider-2", trip.RolePassenger), map[string]any{
		"seatsBooked":      2,
		"paymentReference": "pay-2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("overbook status = %d, want 400", rec.Code)
	}
	after, _ := env.store.GetRide(context.Background(), ride.ID)
	if len(after.Passengers) != 1 {
		t.Errorf("passengers = %d after rejected booking, want 1", len(after.Passengers))
	}
}

func TestBookRideValidation(t *testing.T) {
	env := newTestEnv(t)
	ride := env.createRide(t, "driver-1", 3)
	token := env.token(t, "rider-1", trip.RolePassenger)

	tests := []struct {
		name    string
		path    string
		payload map[string]any
		want    int
	}{
		{"zero seats", "/api/rides/" + ride.ID + "/book", map[string]any{"seatsBooked": 0, "paymentReference": "p"}, http.StatusBadRequest},
		{"missing payment ref", "/api/rides/" + ride.ID + "/book", map[string]any{"seatsBooked": 1}, http.StatusBadRequest},
		{"unknown ride", "/api/rides/nope/book", map[string]any{"seatsBooked": 1, "paymentReference": "p"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, tt.path, token, tt.payload)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSubmitRatingHandler(t *testing.T) {
	env := newTestEnv(t)
	ride := env.createRide(t, "driver-1", 3)
	riderToken := env.token(t, "rider-1", trip.RolePassenger)

	rec := env.do(t, http.MethodPut, "/api/rides/"+ride.ID+"/book", riderToken, map[string]any{
		"seatsBooked":      1,
		"paymentReference": "pay-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("book status = %d", rec.Code)
	}

	ratingPayload := map[string]any{
		"rideId":      ride.ID,
		"ratedUserId": "driver-1",
		"rating":      5,
		"review":      "smooth ride",
	}
	rec = env.do(t, http.MethodPost, "/api/ratings", riderToken, ratingPayload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("rating status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Duplicate conflicts.
	rec = env.do(t, http.MethodPost, "/api/ratings", riderToken, ratingPayload)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate rating status = %d, want 409", rec.Code)
	}

	// Strangers cannot rate.
	rec = env.do(t, http.MethodPost, "/api/ratings", env.token(t, "stranger", trip.RolePassenger), map[string]any{
		"rideId":      ride.ID,
		"ratedUserId": "driver-1",
		"rating":      1,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("stranger rating status = %d, want 403", rec.Code)
	}

	// Participants cannot be rated by strangers either way around.
	rec = env.do(t, http.MethodPost, "/api/ratings", riderToken, map[string]any{
		"rideId":      ride.ID,
		"ratedUserId": "stranger",
		"rating":      5,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("rating stranger status = %d, want 403", rec.Code)
	}
}

func TestSubmitRatingValidation(t *testing.T) {
	env := newTestEnv(t)
	ride := env.createRide(t, "driver-1", 2)
	token := env.token(t, "rider-1", trip.RolePassenger)

	longReview := make([]byte, 501)
	for i := range longReview {
		longReview[i] = 'x'
	}

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"stars too low", map[string]any{"rideId": ride.ID, "ratedUserId": "driver-1", "rating": 0}},
		{"stars too high", map[string]any{"rideId": ride.ID, "ratedUserId": "driver-1", "rating": 6}},
		{"missing ride", map[string]any{"ratedUserId": "driver-1", "rating": 5}},
		{"review too long", map[string]any{"rideId": ride.ID, "ratedUserId": "driver-1", "rating": 5, "review": string(longReview)}},
		{"bad category", map[string]any{"rideId": ride.ID, "ratedUserId": "driver-1", "rating": 5, "categories": map[string]any{"safety": 9}}},
		{"self rating", map[string]any{"rideId": ride.ID, "ratedUserId": "rider-1", "rating": 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/ratings", token, tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetRide(t *testing.T) {
	env := newTestEnv(t)
	ride := env.createRide(t, "driver-1", 2)
	token := env.token(t, "rider-1", trip.RolePassenger)

	rec := env.do(t, http.MethodGet, "/api/rides/"+ride.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/rides/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing ride status = %d, want 404", rec.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	for _, role := range []trip.Role{trip.RolePassenger, trip.RoleDriver} {
		rec := env.do(t, http.MethodGet, "/api/admin/users", env.token(t, fmt.Sprintf("%s-1", role), role), nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("role %s: status = %d, want 403", role, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/admin/users", env.token(t, "admin-1", trip.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}
