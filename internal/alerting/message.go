package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

// TriggerEvent captures everything needed to notify one satisfied alert.
type TriggerEvent struct {
	AlertID        string
	Recipient      string
	BaseCurrency   string
	TargetCurrency string
	DisplayName    string
	TargetRate     decimal.Decimal
	Condition      rates.Condition
	RateType       rates.RateType
	CurrentRate    decimal.Decimal
	Timestamp      time.Time
}

// RenderMessage produces the notification text for a trigger event. The
// output is deterministic for a given event and has no side effects, so it
// can be golden-tested independently of delivery.
func RenderMessage(ev TriggerEvent) string {
	builder := strings.Builder{}
	builder.WriteString("Currency Alert Triggered!\n")
	builder.WriteString(fmt.Sprintf("%s/%s (%s)\n", ev.BaseCurrency, ev.TargetCurrency, ev.DisplayName))
	builder.WriteString(fmt.Sprintf("Target: %s (%s)\n", ev.TargetRate.String(), ev.Condition))
	builder.WriteString(fmt.Sprintf("Current Rate (%s): %s\n", ev.RateType, ev.CurrentRate.String()))
	builder.WriteString(ev.Timestamp.UTC().Format(time.RFC3339))
	return builder.String()
}
