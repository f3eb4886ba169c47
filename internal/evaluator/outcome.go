package evaluator

// SkipReason explains why an alert in the snapshot produced no notification.
// Skips are per-alert and never fail the batch.
type SkipReason string

const (
	// SkipQuoteMissing means the bundle has no quote for the target currency.
	SkipQuoteMissing SkipReason = "quote_missing"
	// SkipFieldMissing means the quote lacks the field the alert watches.
	SkipFieldMissing SkipReason = "field_missing"
	// SkipUnknownCondition means the stored condition value is not recognised.
	SkipUnknownCondition SkipReason = "unknown_condition"
	// SkipDispatchFailed means the condition was satisfied but notification
	// delivery failed.
	SkipDispatchFailed SkipReason = "dispatch_failed"
)

// Result summarises one evaluation pass. Checked counts every active alert
// in the snapshot; Triggered lists only alerts whose notification was
// dispatched successfully.
type Result struct {
	Checked   int
	Triggered []string
}
