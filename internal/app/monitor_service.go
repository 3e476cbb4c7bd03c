package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/core/drift"
	"github.com/example/projector/internal/core/mutation"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

// defaultSweepLimit bounds a sweep batch when the caller does not.
const defaultSweepLimit = 100

// MonitorServiceImpl implements the MonitorService interface. It verifies
// that stored projections match re-derivation from current base rows and
// reports divergence as drift. It never writes corrections itself; with
// self-heal enabled it re-submits the key through the synchronizer so the
// correction obeys per-key ordering.
type MonitorServiceImpl struct {
	store    secondary.ProjectionStore
	base     secondary.BaseRepository
	drift    secondary.DriftSink
	rule     derive.Rule
	sync     primary.SyncService
	selfHeal bool
}

// NewMonitorService creates a consistency monitor. syncService may be nil
// when self-healing is disabled.
func NewMonitorService(
	store secondary.ProjectionStore,
	base secondary.BaseRepository,
	driftSink secondary.DriftSink,
	rule derive.Rule,
	syncService primary.SyncService,
	selfHeal bool,
) *MonitorServiceImpl {
	return &MonitorServiceImpl{
		store:    store,
		base:     base,
		drift:    driftSink,
		rule:     rule,
		sync:     syncService,
		selfHeal: selfHeal,
	}
}

// Sweep verifies a batch of base keys and, separately, looks for orphaned
// projections in the same key range.
func (m *MonitorServiceImpl) Sweep(ctx context.Context, req primary.SweepRequest) (*primary.SweepResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}

	keys, err := m.base.ListKeys(ctx, req.AfterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list base keys: %w", err)
	}

	resp := &primary.SweepResponse{}
	for _, key := range keys {
		resp.Checked++
		rec, err := m.checkKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if err := m.drift.Report(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to report drift for %s: %w", key, err)
		}
		resp.Drifted = append(resp.Drifted, rec)

		if m.selfHeal && m.sync != nil && rec.Reason != drift.ReasonOrphan {
			if err := m.heal(ctx, key); err != nil {
				return nil, err
			}
			resp.Healed++
		}
	}

	orphans, err := m.findOrphans(ctx, req.AfterKey, keys, limit)
	if err != nil {
		return nil, err
	}
	for _, rec := range orphans {
		if err := m.drift.Report(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to report orphan drift for %s: %w", rec.Key, err)
		}
		resp.Drifted = append(resp.Drifted, rec)
	}

	if len(keys) == limit {
		resp.NextCursor = keys[len(keys)-1]
	}
	return resp, nil
}

// checkKey compares one key's stored projection against re-derivation.
// A nil record means the key is consistent.
func (m *MonitorServiceImpl) checkKey(ctx context.Context, key string) (*drift.Record, error) {
	baseRec, err := m.base.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read base row %s: %w", key, err)
	}

	expected, err := m.rule.Derive(derive.BaseRow{Key: key, Attrs: baseRec.Attrs})
	if err != nil {
		var derr *derive.DomainError
		if errors.As(err, &derr) {
			// Underivable base data cannot be compared; the synchronizer's
			// retry-exhaustion path already reported it.
			return nil, nil
		}
		return nil, err
	}

	stored, err := m.store.Get(ctx, key)
	if errors.Is(err, secondary.ErrNotFound) {
		return &drift.Record{
			Key:        key,
			Reason:     drift.ReasonMissing,
			Expected:   expected,
			DetectedAt: time.Now().UTC(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read projection %s: %w", key, err)
	}

	if drift.Equal(expected, stored.Attrs) {
		return nil, nil
	}
	return &drift.Record{
		Key:        key,
		Reason:     drift.ReasonMismatch,
		Expected:   expected,
		Actual:     stored.Attrs,
		DetectedAt: time.Now().UTC(),
	}, nil
}

// findOrphans scans projections in the swept key range and flags those
// whose base row no longer exists. The projection scan pages with its
// own cursor until it passes the base range: orphans have no base row,
// so any number of them can sit between two base keys and a single page
// bounded by the base limit would skip the overflow for good once the
// sweep cursor moves on.
func (m *MonitorServiceImpl) findOrphans(ctx context.Context, afterKey string, baseKeys []string, limit int) ([]*drift.Record, error) {
	known := make(map[string]bool, len(baseKeys))
	for _, k := range baseKeys {
		known[k] = true
	}

	bounded := len(baseKeys) == limit
	var upper string
	if bounded {
		upper = baseKeys[len(baseKeys)-1]
	}

	var orphans []*drift.Record
	cursor := afterKey
	for {
		page, err := m.store.Scan(ctx, secondary.ScanRequest{AfterKey: cursor, Limit: limit})
		if err != nil {
			return nil, fmt.Errorf("failed to scan projections: %w", err)
		}

		for _, rec := range page.Records {
			// Stay within the swept base range so pagination does not
			// flag keys a later batch will cover.
			if bounded && rec.Key > upper {
				return orphans, nil
			}
			if known[rec.Key] {
				continue
			}
			if _, err := m.base.Get(ctx, rec.Key); !errors.Is(err, secondary.ErrNotFound) {
				if err != nil {
					return nil, fmt.Errorf("failed to verify base row %s: %w", rec.Key, err)
				}
				continue
			}
			orphans = append(orphans, &drift.Record{
				Key:        rec.Key,
				Reason:     drift.ReasonOrphan,
				Actual:     rec.Attrs,
				DetectedAt: time.Now().UTC(),
			})
		}

		if page.NextCursor == "" {
			return orphans, nil
		}
		cursor = page.NextCursor
	}
}

// heal re-submits the key as a synthetic update through the synchronizer,
// preserving per-key ordering, then clears its drift history.
func (m *MonitorServiceImpl) heal(ctx context.Context, key string) error {
	if err := m.sync.Apply(ctx, mutation.Event{Kind: mutation.KindUpdate, Key: key}); err != nil {
		return fmt.Errorf("failed to self-heal %s: %w", key, err)
	}
	if err := m.drift.Clear(ctx, key); err != nil {
		return err
	}
	return nil
}

// ListDrift returns recorded drift entries, newest first.
func (m *MonitorServiceImpl) ListDrift(ctx context.Context, limit int) ([]*drift.Record, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return m.drift.List(ctx, limit)
}

// Ensure MonitorServiceImpl implements the interface
var _ primary.MonitorService = (*MonitorServiceImpl)(nil)
