// Package feed decodes mutation events from a JSON-lines file and
// forwards them to the synchronizer, either as a one-shot catch-up read
// or as a live tail.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/core/mutation"
	"github.com/example/projector/internal/ports/primary"
)

// wireEvent is one line of the mutation feed.
type wireEvent struct {
	Op  string             `json:"op"`
	Key string             `json:"key"`
	Old map[string]float64 `json:"old,omitempty"`
	New map[string]float64 `json:"new,omitempty"`
}

// decode turns a feed line into a mutation event.
func decode(line []byte) (mutation.Event, error) {
	var we wireEvent
	if err := json.Unmarshal(line, &we); err != nil {
		return mutation.Event{}, fmt.Errorf("failed to decode feed line: %w", err)
	}
	if we.Key == "" {
		return mutation.Event{}, fmt.Errorf("feed event with empty key")
	}

	switch we.Op {
	case "insert":
		if we.New == nil {
			return mutation.Event{}, fmt.Errorf("insert event for %s has no new row", we.Key)
		}
		return mutation.Insert(derive.BaseRow{Key: we.Key, Attrs: we.New}), nil
	case "update":
		var old, new derive.BaseRow
		event := mutation.Event{Kind: mutation.KindUpdate, Key: we.Key}
		if we.Old != nil {
			old = derive.BaseRow{Key: we.Key, Attrs: we.Old}
			event.Old = &old
		}
		if we.New != nil {
			new = derive.BaseRow{Key: we.Key, Attrs: we.New}
			event.New = &new
		}
		return event, nil
	case "delete":
		return mutation.Delete(we.Key), nil
	default:
		return mutation.Event{}, fmt.Errorf("unknown feed op %q for %s", we.Op, we.Key)
	}
}

// Stats counts the outcome of one feed pass.
type Stats struct {
	Applied int
	Skipped int
	Failed  int
}

// Reader applies feed events to a synchronizer.
type Reader struct {
	sync primary.SyncService
}

// NewReader creates a feed reader over a synchronizer.
func NewReader(syncService primary.SyncService) *Reader {
	return &Reader{sync: syncService}
}

// Apply reads feed lines until EOF and submits each event. Malformed
// lines are skipped and counted; a sync failure counts as failed but
// does not stop the pass (the synchronizer records it as drift).
func (r *Reader) Apply(ctx context.Context, src io.Reader) (*Stats, error) {
	stats := &Stats{}
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		event, err := decode([]byte(line))
		if err != nil {
			log.Printf("projector: feed line %d skipped: %v", lineNo, err)
			stats.Skipped++
			continue
		}

		if err := r.sync.Apply(ctx, event); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Printf("projector: feed line %d failed for %s: %v", lineNo, event.Key, err)
			stats.Failed++
			continue
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read feed: %w", err)
	}
	return stats, nil
}

// Tailer follows an append-only feed file, applying new lines as the
// producer writes them.
type Tailer struct {
	reader *Reader
	path   string

	mu     sync.Mutex
	offset int64
}

// NewTailer creates a tailer for the given feed file.
func NewTailer(syncService primary.SyncService, path string) *Tailer {
	return &Tailer{reader: NewReader(syncService), path: path}
}

// Run catches up on the existing file content, then watches for appends
// until the context is canceled. Truncation resets the read offset.
func (t *Tailer) Run(ctx context.Context) error {
	if err := t.consume(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create feed watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(t.path); err != nil {
		return fmt.Errorf("failed to watch feed %s: %w", t.path, err)
	}

	// Editors and log rotators fire bursts of events for one append.
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !pending {
				pending = true
				debounce.Reset(25 * time.Millisecond)
			}

		case <-debounce.C:
			pending = false
			if err := t.consume(ctx); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("projector: feed watcher error: %v", err)
		}
	}
}

// consume applies everything between the stored offset and EOF.
func (t *Tailer) consume(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("failed to open feed %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat feed %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		t.offset = 0
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek feed %s: %w", t.path, err)
	}

	if _, err := t.reader.Apply(ctx, f); err != nil {
		return err
	}
	// The scanner drains to EOF, which may be past the stat size if the
	// producer appended mid-read.
	end, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to record feed offset: %w", err)
	}
	t.offset = end
	return nil
}
