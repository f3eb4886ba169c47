package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

// Alert is a standing instruction to watch one currency pair against a base
// currency. The evaluator reads alerts; all mutation happens through the
// CRUD surface.
type Alert struct {
	ID             string
	UserID         string
	TelegramChatID string
	BaseCurrency   string
	TargetCurrency string
	TargetRate     decimal.Decimal
	Condition      rates.Condition
	RateType       rates.RateType
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// User owns alerts and authenticates against the CRUD API.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	TelegramChatID string
	CreatedAt      time.Time
}

// AlertPatch carries a partial update; nil fields are left untouched.
type AlertPatch struct {
	TargetRate *decimal.Decimal
	Condition  *rates.Condition
	RateType   *rates.RateType
	IsActive   *bool
}
