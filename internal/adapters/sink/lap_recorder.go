package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
)

// LapRecorderConfig controls batching. Zero values take defaults.
type LapRecorderConfig struct {
	Table         string
	BatchSize     int
	FlushInterval time.Duration
	Buffer        int
	WriteTimeout  time.Duration
}

func (c *LapRecorderConfig) applyDefaults() {
	if c.Table == "" {
		c.Table = "lap_telemetry"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.Buffer <= 0 {
		c.Buffer = 512
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// LapRecorder persists published Snapshots to Postgres/TimescaleDB in
// batches. Record only enqueues; the insert happens on the recorder's own
// goroutine so the link loop never waits on the database.
type LapRecorder struct {
	db      *sql.DB
	cfg     LapRecorderConfig
	session uuid.UUID
	obs     ports.Observability
	log     logr.Logger

	in   chan domain.Snapshot
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewLapRecorder(db *sql.DB, session uuid.UUID, cfg LapRecorderConfig, obs ports.Observability, log logr.Logger) *LapRecorder {
	cfg.applyDefaults()
	if obs == nil {
		obs = ports.NopObservability{}
	}
	return &LapRecorder{
		db:      db,
		cfg:     cfg,
		session: session,
		obs:     obs,
		log:     log,
		in:      make(chan domain.Snapshot, cfg.Buffer),
	}
}

func (r *LapRecorder) Name() string { return "timescaledb" }

func (r *LapRecorder) Session() uuid.UUID { return r.session }

// EnsureTable creates the recording table when it is missing.
func (r *LapRecorder) EnsureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session_id UUID NOT NULL,
	seq BIGINT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	lap_count INTEGER NOT NULL,
	lap_time REAL NOT NULL,
	speed_kmh REAL NOT NULL,
	snapshot JSONB NOT NULL,
	PRIMARY KEY (session_id, seq)
)`, pq.QuoteIdentifier(r.cfg.Table))
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", r.cfg.Table, err)
	}
	return nil
}

// Start launches the flush loop. It returns an error if already running.
func (r *LapRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return errors.New("recorder already started")
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(ctx, r.stop, r.done)
	r.log.Info("recorder started", "table", r.cfg.Table, "session", r.session.String(), "batch", r.cfg.BatchSize)
	return nil
}

// Record enqueues s without blocking. It reports false when the buffer is full.
func (r *LapRecorder) Record(s domain.Snapshot) bool {
	select {
	case r.in <- s:
		return true
	default:
		return false
	}
}

// Stop flushes whatever is buffered and waits for the loop, bounded by ctx.
func (r *LapRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	stop, done := r.stop, r.done
	if stop == nil {
		r.mu.Unlock()
		return nil
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder stop: %w", ctx.Err())
	}
}

func (r *LapRecorder) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]domain.Snapshot, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
		defer cancel()
		start := time.Now()
		if err := r.WriteBatch(wctx, batch); err != nil {
			r.obs.IncCounter(ports.MetricRecorderDropped, float64(len(batch)))
			r.obs.LogError("recorder_write_failed", err, ports.Field{Key: "rows", Value: len(batch)})
		} else {
			r.obs.IncCounter(ports.MetricRecorderWritten, float64(len(batch)))
			r.obs.ObserveLatency(ports.LatencyRecorderFlush, time.Since(start).Seconds())
		}
		batch = batch[:0]
	}
	drain := func() {
		for {
			select {
			case s := <-r.in:
				batch = append(batch, s)
				if len(batch) >= r.cfg.BatchSize {
					flush()
				}
			default:
				flush()
				return
			}
		}
	}

	for {
		select {
		case s := <-r.in:
			batch = append(batch, s)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-stop:
			drain()
			return
		case <-ctx.Done():
			drain()
			return
		}
	}
}

// WriteBatch inserts snapshots in one statement. Rows already present for the
// same session and sequence are skipped, so a retried batch is harmless.
func (r *LapRecorder) WriteBatch(ctx context.Context, snaps []domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pq.QuoteIdentifier(r.cfg.Table))
	b.WriteString(" (session_id, seq, ts, lap_count, lap_time, speed_kmh, snapshot) VALUES ")

	args := make([]any, 0, len(snaps)*7)
	for i, s := range snaps {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7)
		doc, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal snapshot %d: %w", s.Seq, err)
		}
		args = append(args,
			r.session.String(),
			int64(s.Seq),
			s.Timestamp,
			s.LapCount,
			s.LapTime,
			s.SpeedKmh,
			doc,
		)
	}

	b.WriteString(" ON CONFLICT (session_id, seq) DO NOTHING")

	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert %d snapshots: %w", len(snaps), err)
	}
	return nil
}

var _ ports.Recorder = (*LapRecorder)(nil)
