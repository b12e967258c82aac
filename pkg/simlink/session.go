package simlink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ghalamif/simlink/internal/adapters/observability"
	"github.com/ghalamif/simlink/internal/adapters/queue"
	"github.com/ghalamif/simlink/internal/adapters/simstate"
	"github.com/ghalamif/simlink/internal/adapters/sink"
	"github.com/ghalamif/simlink/internal/adapters/udp"
	"github.com/ghalamif/simlink/internal/app/dispatch"
	"github.com/ghalamif/simlink/internal/app/pipeline"
	"github.com/ghalamif/simlink/internal/app/sampler"
	"github.com/ghalamif/simlink/internal/ports"
)

// SessionOption customizes the dependencies used by Session.
type SessionOption func(*sessionOverrides)

type sessionOverrides struct {
	state    VehicleState
	control  VehicleControl
	tx       Transmitter
	recorder Recorder
	obs      Observability
	log      *logr.Logger
	queue    DatagramQueue
	listener ControlListener
}

// WithVehicle connects the session to a real simulation instead of the
// built-in synthetic car.
func WithVehicle(state VehicleState, control VehicleControl) SessionOption {
	return func(o *sessionOverrides) {
		o.state = state
		o.control = control
	}
}

// WithTransmitter replaces the UDP telemetry socket.
func WithTransmitter(tx Transmitter) SessionOption {
	return func(o *sessionOverrides) {
		o.tx = tx
	}
}

// WithRecorder installs a recorder regardless of the recorder config section.
func WithRecorder(r Recorder) SessionOption {
	return func(o *sessionOverrides) {
		o.recorder = r
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) SessionOption {
	return func(o *sessionOverrides) {
		o.obs = obs
	}
}

func WithLogger(log logr.Logger) SessionOption {
	return func(o *sessionOverrides) {
		o.log = &log
	}
}

// WithDatagramQueue swaps the bounded control backlog.
func WithDatagramQueue(q DatagramQueue) SessionOption {
	return func(o *sessionOverrides) {
		o.queue = q
	}
}

// WithControlListener replaces the UDP control socket.
func WithControlListener(l ControlListener) SessionOption {
	return func(o *sessionOverrides) {
		o.listener = l
	}
}

// Session owns one telemetry/control link: the sockets, both loops and the
// optional recorder. Create it with NewSession, then Start or Run it.
type Session struct {
	cfg Config
	id  uuid.UUID
	log logr.Logger

	obs        ports.Observability
	registry   *prometheus.Registry
	sim        *simstate.Vehicle
	state      ports.VehicleState
	sampler    *sampler.Sampler
	dispatcher *dispatch.Dispatcher
	queue      ports.DatagramQueue
	listener   ports.ControlListener
	tx         ports.Transmitter
	recorder   ports.Recorder
	db         *sql.DB

	opsSrv *http.Server
	opsLn  net.Listener

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
	stopErr  error
}

// NewSession validates cfg and wires the default adapters (synthetic vehicle,
// UDP sockets, Prometheus observability, Postgres recorder when enabled).
// Sockets are not opened until Start.
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides sessionOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}
	if (overrides.state == nil) != (overrides.control == nil) {
		return nil, fmt.Errorf("vehicle state and control must be provided together")
	}

	s := &Session{cfg: *cfg, id: uuid.New()}

	if overrides.log != nil {
		s.log = *overrides.log
	} else {
		s.log = logr.Discard()
	}
	s.log = s.log.WithValues("session", s.id.String())

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.obs = overrides.obs
	if s.obs == nil {
		s.obs = observability.NewPromObs(s.registry, s.log.WithName("link"))
	}

	control := overrides.control
	s.state = overrides.state
	if s.state == nil {
		s.sim = simstate.New(simstate.Options{
			Name:          cfg.Vehicle.Name,
			LiveBrakeBias: cfg.Vehicle.LiveBrakeBias,
			MaxRPM:        cfg.Vehicle.MaxRPM,
		})
		s.state, control = s.sim, s.sim
	}

	s.sampler = sampler.New(s.state, sampler.WithMinInterval(cfg.SampleInterval()/2))
	s.dispatcher = dispatch.New(control)

	s.queue = overrides.queue
	if s.queue == nil {
		s.queue = queue.NewBacklog(cfg.Control.Backlog)
	}

	s.tx = overrides.tx
	s.listener = overrides.listener
	if s.listener == nil {
		s.listener = udp.NewReceiver(udp.ReceiverConfig{
			Address: cfg.ControlAddr(),
			RcvBuf:  cfg.Control.RcvBuf,
			Logger:  s.log.WithName("control"),
			Obs:     s.obs,
		})
	}

	s.recorder = overrides.recorder
	if s.recorder == nil && cfg.Recorder.Enabled {
		db, err := sql.Open("postgres", cfg.Recorder.ConnString)
		if err != nil {
			return nil, fmt.Errorf("open recorder database: %w", err)
		}
		s.db = db
		s.recorder = sink.NewLapRecorder(db, s.id, sink.LapRecorderConfig{
			Table:         cfg.Recorder.Table,
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			Buffer:        cfg.Recorder.Buffer,
		}, s.obs, s.log.WithName("recorder"))
	}

	return s, nil
}

// ID identifies this session in logs and recorded rows.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns a copy of the configuration the session was built with.
func (s *Session) Config() Config { return s.cfg }

// Registry exposes the session's Prometheus registry.
func (s *Session) Registry() *prometheus.Registry { return s.registry }

// Latest returns the last published Snapshot.
func (s *Session) Latest() (Snapshot, bool) { return s.sampler.Latest() }

// Indicator returns the current indicator state machine value.
func (s *Session) Indicator() IndicatorState { return s.dispatcher.Indicator() }

// Vehicle returns the built-in synthetic vehicle, or nil when WithVehicle was used.
func (s *Session) Vehicle() *simstate.Vehicle { return s.sim }

// Start acquires the sockets and launches the loops. Any error here is fatal
// for the session; resources acquired before the failure are released.
func (s *Session) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session already started")
	}

	var cleanup []func() error
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				_ = cleanup[i]()
			}
		}
	}()

	if s.tx == nil {
		tx, err := udp.NewTransmitter(s.cfg.TelemetryAddr(), s.cfg.Telemetry.SendTimeout)
		if err != nil {
			return err
		}
		s.tx = tx
		cleanup = append(cleanup, func() error {
			s.tx = nil
			return tx.Close()
		})
	} else {
		cleanup = append(cleanup, s.tx.Close)
	}

	if err := s.listener.Start(s.queue); err != nil {
		return err
	}
	cleanup = append(cleanup, s.listener.Stop)

	runCtx, cancel := context.WithCancel(ctx)
	cleanup = append(cleanup, func() error { cancel(); return nil })

	if s.recorder != nil {
		if lr, ok := s.recorder.(*sink.LapRecorder); ok && s.cfg.Recorder.CreateTable {
			if err := lr.EnsureTable(ctx); err != nil {
				return err
			}
		}
		if err := s.recorder.Start(runCtx); err != nil {
			return fmt.Errorf("start recorder %s: %w", s.recorder.Name(), err)
		}
		rec := s.recorder
		cleanup = append(cleanup, func() error { return rec.Stop(context.Background()) })
	}

	if s.cfg.Metrics.Enabled {
		if err := s.listenOps(); err != nil {
			return err
		}
	}

	link := &pipeline.Link{
		Source:   s.sampler,
		Tx:       s.tx,
		Recorder: s.recorder,
		Queue:    s.queue,
		Sink:     s.dispatcher,
		Policy:   s.cfg.Policy(),
		Obs:      s.obs,
		Log:      s.log.WithName("link"),
	}

	if s.sim != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sim.Drive(runCtx, 10*time.Millisecond)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = link.Run(runCtx)
	}()

	if s.opsSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.opsSrv.Serve(s.opsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.obs.LogError("ops_server_exited", err)
			}
		}()
	}

	s.cancel = cancel
	s.started = true
	s.log.Info("session started",
		"telemetry", s.tx.Name(),
		"control", s.cfg.ControlAddr(),
		"rateHz", s.cfg.Telemetry.SampleRateHz,
		"ops", s.OpsAddr())
	return nil
}

// Run starts the session and blocks until ctx is cancelled, then shuts down
// with a five second budget.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops both loops, closes both sockets and the ops server, and
// flushes the recorder. It is safe to call more than once.
func (s *Session) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		s.mu.Lock()
		started, cancel := s.started, s.cancel
		s.mu.Unlock()

		var errs []error

		if cancel != nil {
			cancel()
		}

		if s.opsSrv != nil {
			if err := s.opsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("wait for loops: %w", ctx.Err()))
		}

		if started {
			if err := s.listener.Stop(); err != nil {
				errs = append(errs, err)
			}
			if err := s.tx.Close(); err != nil {
				errs = append(errs, err)
			}
			if s.recorder != nil {
				if err := s.recorder.Stop(ctx); err != nil {
					errs = append(errs, err)
				}
			}
		}

		if s.db != nil {
			if err := s.db.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		s.stopErr = errors.Join(errs...)
		s.log.Info("session stopped")
	})
	return s.stopErr
}
