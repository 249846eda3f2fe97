package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ShowRecentAlerts prints the newest fired-alert audit records.
func (a *App) ShowRecentAlerts(ctx context.Context, out io.Writer, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; nothing to show")
	}
	defer closeStore()

	records, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("list recent alerts: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "no fired alerts recorded")
		return nil
	}

	for _, record := range records {
		status := "delivered"
		if !record.Delivered {
			status = "failed"
		}
		fmt.Fprintf(out, "%s  %-24s %-16s value=%s urgency=%s %s\n",
			record.FiredAt.UTC().Format(time.RFC3339),
			record.AlertID,
			record.QueryID,
			record.Value.String(),
			record.Urgency,
			status,
		)
	}
	return nil
}
