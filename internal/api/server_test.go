package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeinprogress/aws-currency-tracker/internal/cache"
	"github.com/leeinprogress/aws-currency-tracker/internal/config"
	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
	"github.com/leeinprogress/aws-currency-tracker/internal/storage"
)

// memStore is an in-memory stand-in for the Postgres store, keyed the same
// way the real tables are.
type memStore struct {
	mu     sync.Mutex
	alerts map[string]storage.Alert
	users  map[string]storage.User
}

func newMemStore() *memStore {
	return &memStore{
		alerts: make(map[string]storage.Alert),
		users:  make(map[string]storage.User),
	}
}

func (m *memStore) InsertAlert(_ context.Context, alert storage.Alert) (storage.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	alert.CreatedAt = now
	alert.UpdatedAt = now
	m.alerts[alert.ID] = alert
	return alert, nil
}

func (m *memStore) GetAlert(_ context.Context, id string) (storage.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	if !ok {
		return storage.Alert{}, storage.ErrNotFound
	}
	return alert, nil
}

func (m *memStore) ListAlertsByOwner(_ context.Context, userID string, isActive *bool) ([]storage.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.Alert, 0)
	for _, a := range m.alerts {
		if a.UserID != userID {
			continue
		}
		if isActive != nil && a.IsActive != *isActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListActiveAlertsByBase(_ context.Context, baseCurrency string) ([]storage.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.Alert, 0)
	for _, a := range m.alerts {
		if a.IsActive && a.BaseCurrency == baseCurrency {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CountActiveAlerts(_ context.Context, baseCurrency string) (int64, error) {
	alerts, _ := m.ListActiveAlertsByBase(context.Background(), baseCurrency)
	return int64(len(alerts)), nil
}

func (m *memStore) UpdateAlertFields(_ context.Context, id string, patch storage.AlertPatch) (storage.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	if !ok {
		return storage.Alert{}, storage.ErrNotFound
	}
	if patch.TargetRate != nil {
		alert.TargetRate = *patch.TargetRate
	}
	if patch.Condition != nil {
		alert.Condition = *patch.Condition
	}
	if patch.RateType != nil {
		alert.RateType = *patch.RateType
	}
	if patch.IsActive != nil {
		alert.IsActive = *patch.IsActive
	}
	alert.UpdatedAt = time.Now().UTC()
	m.alerts[id] = alert
	return alert, nil
}

func (m *memStore) DeleteAlert(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.alerts, id)
	return nil
}

func (m *memStore) InsertUser(_ context.Context, user storage.User) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return storage.User{}, storage.ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

var (
	_ storage.AlertStore = (*memStore)(nil)
	_ storage.UserStore  = (*memStore)(nil)
)

type apiHarness struct {
	store  *memStore
	cache  *cache.RateCache
	server *Server
	router http.Handler
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()

	rateCache, err := cache.NewRateCache(16)
	require.NoError(t, err)
	t.Cleanup(rateCache.Close)

	store := newMemStore()
	server := NewServer(store, store, rateCache, config.ServerConfig{
		Addr:      ":0",
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}, "KRW", zerolog.Nop())

	return &apiHarness{
		store:  store,
		cache:  rateCache,
		server: server,
		router: server.Router(),
	}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates a user and returns its access token and ID.
func (h *apiHarness) registerAndLogin(t *testing.T, email string) (token, userID string) {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":            email,
		"password":         "hunter2hunter2",
		"telegram_chat_id": "chat-" + email,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	token, _ = body["access_token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]any)
	userID, _ = user["user_id"].(string)
	require.NotEmpty(t, userID)
	return token, userID
}

func validAlertBody() map[string]any {
	return map[string]any{
		"target_currency": "USD",
		"target_rate":     1300.0,
		"condition":       "above",
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"password": "hunter2hunter2", "telegram_chat_id": "c"}},
		{"invalid email", map[string]string{"email": "not-an-email", "password": "hunter2hunter2", "telegram_chat_id": "c"}},
		{"short password", map[string]string{"email": "a@example.com", "password": "short", "telegram_chat_id": "c"}},
		{"missing chat id", map[string]string{"email": "a@example.com", "password": "hunter2hunter2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/v1/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.registerAndLogin(t, "dup@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":            "dup@example.com",
		"password":         "hunter2hunter2",
		"telegram_chat_id": "chat-2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["detail"], "already registered")
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.registerAndLogin(t, "user@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAlertsRequireAuth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/alerts/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/alerts/", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAlert(t *testing.T) {
	h := newHarness(t)
	token, userID := h.registerAndLogin(t, "owner@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/alerts/", token, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, userID, body["user_id"])
	assert.Equal(t, "KRW", body["base_currency"])
	assert.Equal(t, "USD", body["target_currency"])
	assert.Equal(t, "above", body["condition"])
	// rate_type defaults to the selling rate when not supplied.
	assert.Equal(t, "TTS", body["rate_type"])
	assert.Equal(t, true, body["is_active"])
	assert.Equal(t, "chat-owner@example.com", body["telegram_chat_id"])
}

func TestCreateAlertValidation(t *testing.T) {
	h := newHarness(t)
	token, _ := h.registerAndLogin(t, "owner@example.com")

	mutate := func(mutate func(map[string]any)) map[string]any {
		body := validAlertBody()
		mutate(body)
		return body
	}

	cases := []struct {
		name string
		body map[string]any
	}{
		{"wrong base currency", mutate(func(b map[string]any) { b["base_currency"] = "USD" })},
		{"bad target code", mutate(func(b map[string]any) { b["target_currency"] = "US" })},
		{"numeric target code", mutate(func(b map[string]any) { b["target_currency"] = "U5D" })},
		{"zero target rate", mutate(func(b map[string]any) { b["target_rate"] = 0.0 })},
		{"negative target rate", mutate(func(b map[string]any) { b["target_rate"] = -1.0 })},
		{"unknown condition", mutate(func(b map[string]any) { b["condition"] = "between" })},
		{"unknown rate type", mutate(func(b map[string]any) { b["rate_type"] = "SPOT" })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/v1/alerts/", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestListAlertsFilter(t *testing.T) {
	h := newHarness(t)
	token, _ := h.registerAndLogin(t, "owner@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/alerts/", token, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	activeID, _ := decodeBody(t, rec)["alert_id"].(string)

	rec = h.do(t, http.MethodPost, "/api/v1/alerts/", token, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	inactiveID, _ := decodeBody(t, rec)["alert_id"].(string)

	rec = h.do(t, http.MethodPut, "/api/v1/alerts/"+inactiveID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/alerts/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["total"])

	rec = h.do(t, http.MethodGet, "/api/v1/alerts/?is_active=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])
	alerts, _ := body["alerts"].([]any)
	require.Len(t, alerts, 1)
	first, _ := alerts[0].(map[string]any)
	assert.Equal(t, activeID, first["alert_id"])
}

func TestAlertOwnership(t *testing.T) {
	h := newHarness(t)
	ownerToken, _ := h.registerAndLogin(t, "owner@example.com")
	otherToken, _ := h.registerAndLogin(t, "other@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/alerts/", ownerToken, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	alertID, _ := decodeBody(t, rec)["alert_id"].(string)

	rec = h.do(t, http.MethodGet, "/api/v1/alerts/"+alertID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/v1/alerts/"+alertID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/alerts/no-such-alert", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAlert(t *testing.T) {
	h := newHarness(t)
	token, _ := h.registerAndLogin(t, "owner@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/alerts/", token, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	alertID, _ := decodeBody(t, rec)["alert_id"].(string)

	rec = h.do(t, http.MethodPut, "/api/v1/alerts/"+alertID, token, map[string]any{
		"target_rate": 1250.5,
		"condition":   "below",
		"rate_type":   "TTB",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, 1250.5, body["target_rate"])
	assert.Equal(t, "below", body["condition"])
	assert.Equal(t, "TTB", body["rate_type"])

	rec = h.do(t, http.MethodPut, "/api/v1/alerts/"+alertID, token, map[string]any{"target_rate": -5.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleAlert(t *testing.T) {
	h := newHarness(t)
	token, _ := h.registerAndLogin(t, "owner@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/alerts/", token, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	alertID, _ := decodeBody(t, rec)["alert_id"].(string)

	rec = h.do(t, http.MethodPut, "/api/v1/alerts/"+alertID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["is_active"])

	rec = h.do(t, http.MethodPut, "/api/v1/alerts/"+alertID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["is_active"])
}

func TestDeleteAlert(t *testing.T) {
	h := newHarness(t)
	token, _ := h.registerAndLogin(t, "owner@example.com")

	rec := h.do(t, http.MethodPost, "/api/v1/alerts/", token, validAlertBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	alertID, _ := decodeBody(t, rec)["alert_id"].(string)

	rec = h.do(t, http.MethodDelete, "/api/v1/alerts/"+alertID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/alerts/"+alertID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRates(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/rates/KRW", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	tts := decimal.NewFromFloat(1350.5)
	h.cache.SetBundle(rates.Bundle{
		BaseCurrency: "KRW",
		Quotes: map[string]rates.Quote{
			"USD": {DisplayName: "US Dollar", TTS: &tts},
		},
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	rec = h.do(t, http.MethodGet, "/api/v1/rates/krw", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "KRW", body["base_currency"])
	assert.Equal(t, "2024-01-02T03:04:05Z", body["timestamp"])
	quotes, _ := body["rates"].(map[string]any)
	usd, _ := quotes["USD"].(map[string]any)
	assert.Equal(t, "US Dollar", usd["cur_nm"])
	assert.Equal(t, 1350.5, usd["TTS"])
	_, hasTTB := usd["TTB"]
	assert.False(t, hasTTB, "absent rates should be omitted")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenSignedWithWrongSecretRejected(t *testing.T) {
	h := newHarness(t)
	_, userID := h.registerAndLogin(t, "owner@example.com")

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := forged.SignedString([]byte("different-secret"))
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/api/v1/alerts/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
