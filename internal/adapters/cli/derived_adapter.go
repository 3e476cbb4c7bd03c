// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

// DerivedAdapter is a thin adapter that translates CLI operations to ReadService calls.
// It depends only on the ReadService interface, enabling easy testing with mocks.
type DerivedAdapter struct {
	service primary.ReadService
	out     io.Writer
}

// NewDerivedAdapter creates a new DerivedAdapter with the given service.
func NewDerivedAdapter(service primary.ReadService, out io.Writer) *DerivedAdapter {
	return &DerivedAdapter{
		service: service,
		out:     out,
	}
}

// Get displays the derived projection for one key.
func (a *DerivedAdapter) Get(ctx context.Context, key string) error {
	view, err := a.service.GetDerived(ctx, key)
	if errors.Is(err, secondary.ErrNotFound) {
		fmt.Fprintf(a.out, "No projection for %s\n", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get projection: %w", err)
	}

	fmt.Fprintf(a.out, "\nCluster: %s\n", view.Key)
	for _, col := range sortedColumns(view.Attrs) {
		fmt.Fprintf(a.out, "%s: %g\n", col, view.Attrs[col])
	}
	fmt.Fprintf(a.out, "Synced:  %s\n", view.LastSyncedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(a.out)

	return nil
}

// Scan lists projections in key order, one page per call.
func (a *DerivedAdapter) Scan(ctx context.Context, cursor string, limit int) (string, error) {
	resp, err := a.service.ScanDerived(ctx, primary.ScanDerivedRequest{Cursor: cursor, Limit: limit})
	if err != nil {
		return "", fmt.Errorf("failed to scan projections: %w", err)
	}

	if len(resp.Rows) == 0 {
		fmt.Fprintln(a.out, "No projections found")
		return "", nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CLUSTER\tFREE CORES\tSYNCED")
	fmt.Fprintln(w, "-------\t----------\t------")
	for _, row := range resp.Rows {
		fmt.Fprintf(w, "%s\t%g\t%s\n",
			row.Key,
			row.Attrs[derive.ColFreeCores],
			row.LastSyncedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	if resp.NextCursor != "" {
		fmt.Fprintf(a.out, "\nMore rows; continue with --after %s\n", resp.NextCursor)
	}
	return resp.NextCursor, nil
}

func sortedColumns(attrs map[string]float64) []string {
	cols := make([]string, 0, len(attrs))
	for col := range attrs {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
