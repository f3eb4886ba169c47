package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
	"github.com/leeinprogress/aws-currency-tracker/internal/storage"
)

type alertCreateRequest struct {
	BaseCurrency   string  `json:"base_currency"`
	TargetCurrency string  `json:"target_currency"`
	TargetRate     float64 `json:"target_rate"`
	Condition      string  `json:"condition"`
	RateType       string  `json:"rate_type"`
}

type alertUpdateRequest struct {
	TargetRate *float64 `json:"target_rate"`
	Condition  *string  `json:"condition"`
	RateType   *string  `json:"rate_type"`
	IsActive   *bool    `json:"is_active"`
}

type alertResponse struct {
	AlertID        string  `json:"alert_id"`
	UserID         string  `json:"user_id"`
	TelegramChatID string  `json:"telegram_chat_id"`
	BaseCurrency   string  `json:"base_currency"`
	TargetCurrency string  `json:"target_currency"`
	TargetRate     float64 `json:"target_rate"`
	Condition      string  `json:"condition"`
	RateType       string  `json:"rate_type"`
	IsActive       bool    `json:"is_active"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type alertListResponse struct {
	Alerts []alertResponse `json:"alerts"`
	Total  int             `json:"total"`
}

func toAlertResponse(a storage.Alert) alertResponse {
	return alertResponse{
		AlertID:        a.ID,
		UserID:         a.UserID,
		TelegramChatID: a.TelegramChatID,
		BaseCurrency:   a.BaseCurrency,
		TargetCurrency: a.TargetCurrency,
		TargetRate:     a.TargetRate.InexactFloat64(),
		Condition:      string(a.Condition),
		RateType:       string(a.RateType),
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func validateCurrencyCode(v string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(v))
	if len(code) != 3 {
		return "", fmt.Errorf("currency code must be exactly 3 letters")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("currency code must contain only letters")
		}
	}
	return code, nil
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The provider quotes everything against one base; alerts are pinned to it.
	if req.BaseCurrency == "" {
		req.BaseCurrency = s.baseCurrency
	}
	base, err := validateCurrencyCode(req.BaseCurrency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if base != strings.ToUpper(s.baseCurrency) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("base currency must be %s", strings.ToUpper(s.baseCurrency)))
		return
	}

	target, err := validateCurrencyCode(req.TargetCurrency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TargetRate <= 0 {
		writeError(w, http.StatusBadRequest, "target_rate must be greater than zero")
		return
	}
	condition, err := rates.ParseCondition(req.Condition)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RateType == "" {
		req.RateType = string(rates.RateTypeTTS)
	}
	rateType, err := rates.ParseRateType(req.RateType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Recipient handle is denormalised onto the alert at creation time.
	user, err := s.users.GetUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load alert owner")
		writeError(w, http.StatusInternalServerError, "failed to create alert")
		return
	}

	alert, err := s.alerts.InsertAlert(r.Context(), storage.Alert{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		TelegramChatID: user.TelegramChatID,
		BaseCurrency:   base,
		TargetCurrency: target,
		TargetRate:     decimal.NewFromFloat(req.TargetRate),
		Condition:      condition,
		RateType:       rateType,
		IsActive:       true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to insert alert")
		writeError(w, http.StatusInternalServerError, "failed to create alert")
		return
	}

	writeJSON(w, http.StatusCreated, toAlertResponse(alert))
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	var isActive *bool
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_active must be a boolean")
			return
		}
		isActive = &parsed
	}

	alerts, err := s.alerts.ListAlertsByOwner(r.Context(), userIDFrom(r.Context()), isActive)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list alerts")
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	resp := alertListResponse{Alerts: make([]alertResponse, 0, len(alerts)), Total: len(alerts)}
	for _, a := range alerts {
		resp.Alerts = append(resp.Alerts, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ownedAlert loads an alert and enforces that the caller owns it.
func (s *Server) ownedAlert(w http.ResponseWriter, r *http.Request) (storage.Alert, bool) {
	alert, err := s.alerts.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
		} else {
			s.logger.Error().Err(err).Msg("failed to load alert")
			writeError(w, http.StatusInternalServerError, "failed to load alert")
		}
		return storage.Alert{}, false
	}
	if alert.UserID != userIDFrom(r.Context()) {
		writeError(w, http.StatusForbidden, "not authorized to access this alert")
		return storage.Alert{}, false
	}
	return alert, true
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}

	var req alertUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var patch storage.AlertPatch
	if req.TargetRate != nil {
		if *req.TargetRate <= 0 {
			writeError(w, http.StatusBadRequest, "target_rate must be greater than zero")
			return
		}
		rate := decimal.NewFromFloat(*req.TargetRate)
		patch.TargetRate = &rate
	}
	if req.Condition != nil {
		condition, err := rates.ParseCondition(*req.Condition)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Condition = &condition
	}
	if req.RateType != nil {
		rateType, err := rates.ParseRateType(*req.RateType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.RateType = &rateType
	}
	patch.IsActive = req.IsActive

	updated, err := s.alerts.UpdateAlertFields(r.Context(), alert.ID, patch)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to update alert")
		writeError(w, http.StatusInternalServerError, "failed to update alert")
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(updated))
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}

	if err := s.alerts.DeleteAlert(r.Context(), alert.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		s.logger.Error().Err(err).Msg("failed to delete alert")
		writeError(w, http.StatusInternalServerError, "failed to delete alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert deleted successfully"})
}

func (s *Server) handleToggleAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}

	toggled := !alert.IsActive
	updated, err := s.alerts.UpdateAlertFields(r.Context(), alert.ID, storage.AlertPatch{IsActive: &toggled})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to toggle alert")
		writeError(w, http.StatusInternalServerError, "failed to toggle alert")
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(updated))
}
