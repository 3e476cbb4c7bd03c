package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/projector/internal/ports/primary"
)

// DriftAdapter is a thin adapter that translates CLI operations to MonitorService calls.
// It depends only on the MonitorService interface, enabling easy testing with mocks.
type DriftAdapter struct {
	service primary.MonitorService
	out     io.Writer
}

// NewDriftAdapter creates a new DriftAdapter with the given service.
func NewDriftAdapter(service primary.MonitorService, out io.Writer) *DriftAdapter {
	return &DriftAdapter{
		service: service,
		out:     out,
	}
}

// Sweep runs verification batches until the key space is exhausted and
// prints a summary.
func (a *DriftAdapter) Sweep(ctx context.Context, limit int) error {
	var checked, drifted, healed int
	cursor := ""
	for {
		resp, err := a.service.Sweep(ctx, primary.SweepRequest{AfterKey: cursor, Limit: limit})
		if err != nil {
			return fmt.Errorf("failed to sweep: %w", err)
		}
		checked += resp.Checked
		drifted += len(resp.Drifted)
		healed += resp.Healed

		for _, rec := range resp.Drifted {
			color.New(color.FgYellow).Fprintf(a.out, "drift %s: %s\n", rec.Key, rec.Reason)
		}

		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	if drifted == 0 {
		color.New(color.FgGreen).Fprintf(a.out, "✓ %d keys checked, all consistent\n", checked)
		return nil
	}
	fmt.Fprintf(a.out, "%d keys checked, %d drifted, %d healed\n", checked, drifted, healed)
	return nil
}

// List prints recorded drift entries, newest first.
func (a *DriftAdapter) List(ctx context.Context, limit int) error {
	records, err := a.service.ListDrift(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list drift: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No drift recorded")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CLUSTER\tREASON\tDETECTED\tDETAIL")
	fmt.Fprintln(w, "-------\t------\t--------\t------")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.Key,
			rec.Reason,
			rec.DetectedAt.Format("2006-01-02 15:04:05"),
			rec.Detail,
		)
	}
	w.Flush()

	return nil
}
