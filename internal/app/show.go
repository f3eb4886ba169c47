package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	UserID   string
	OnlyBase string
}

// Show prints stored alerts for a user.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := store.ListAlertsByOwner(ctx, opts.UserID, nil)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tPair\tTarget\tCondition\tRate Type\tActive\tUpdated (UTC)")

	for _, alert := range alerts {
		if opts.OnlyBase != "" && alert.BaseCurrency != opts.OnlyBase {
			continue
		}
		fmt.Fprintf(
			writer,
			"%s\t%s/%s\t%s\t%s\t%s\t%t\t%s\n",
			alert.ID,
			alert.BaseCurrency,
			alert.TargetCurrency,
			alert.TargetRate.String(),
			alert.Condition,
			alert.RateType,
			alert.IsActive,
			alert.UpdatedAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}
