package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"equiherds-backend/config"
	"equiherds-backend/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Conn is a live link to the backing store.
type Conn interface {
	DB() *gorm.DB
	// Probe is a cheap readiness check. It must honour ctx.
	Probe(ctx context.Context) State
	Close() error
}

// Dialer opens a new Conn. ctx carries the connect timeout.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type DialFunc func(ctx context.Context) (Conn, error)

func (f DialFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

type Options struct {
	ConnectTimeout       time.Duration
	ProbeTimeout         time.Duration
	ReadyPollInterval    time.Duration
	ReadyPollMaxInterval time.Duration
	ReadyMaxAttempts     int

	// OnConnect runs once against every freshly verified handle before it is
	// cached. An error fails the acquisition.
	OnConnect func(ctx context.Context, db *gorm.DB) error
}

// OptionsFromConfig maps the database settings onto manager options.
func OptionsFromConfig(cfg config.DatabaseConfig) Options {
	return Options{
		ConnectTimeout:       cfg.ConnectTimeout,
		ProbeTimeout:         cfg.ProbeTimeout,
		ReadyPollInterval:    cfg.ReadyPollInterval,
		ReadyPollMaxInterval: cfg.ReadyPollMaxInterval,
		ReadyMaxAttempts:     cfg.ReadyMaxAttempts,
	}
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = time.Second
	}
	if o.ReadyPollInterval <= 0 {
		o.ReadyPollInterval = 100 * time.Millisecond
	}
	if o.ReadyPollMaxInterval < o.ReadyPollInterval {
		o.ReadyPollMaxInterval = o.ReadyPollInterval
	}
	if o.ReadyMaxAttempts <= 0 {
		o.ReadyMaxAttempts = 50
	}
	return o
}

const acquireKey = "acquire"

// Manager owns the process-wide store handle. It is created once at start
// and shared by every request; the handle itself is opened lazily by the
// first Acquire and replaced whenever a probe finds it unusable.
type Manager struct {
	dialer Dialer
	opts   Options
	log    zerolog.Logger

	group singleflight.Group

	mu    sync.Mutex
	conn  Conn
	state State

	attempts atomic.Int64
}

func NewManager(dialer Dialer, opts Options, log zerolog.Logger) *Manager {
	metrics.DBState.Set(float64(StateDisconnected))
	return &Manager{
		dialer: dialer,
		opts:   opts.withDefaults(),
		log:    log.With().Str("component", "store").Logger(),
		state:  StateDisconnected,
	}
}

// Acquire returns the shared ready handle, connecting if needed. Concurrent
// callers during a connect share its outcome. If ctx ends first Acquire
// returns ctx.Err(), but the connect keeps running and caches its result.
func (m *Manager) Acquire(ctx context.Context) (*gorm.DB, error) {
	if db, ok := m.cached(ctx); ok {
		return db, nil
	}

	ch := m.group.DoChan(acquireKey, m.connect)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*gorm.DB), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ping reports whether a ready handle can be obtained, connecting if needed.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.Acquire(ctx)
	return err
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts reports how many times the dialer has been invoked.
func (m *Manager) Attempts() int64 {
	return m.attempts.Load()
}

// cached returns the cached handle when it probes ready. A handle in any
// other state is torn down so the caller falls through to a fresh connect.
func (m *Manager) cached(ctx context.Context) (*gorm.DB, bool) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return nil, false
	}

	st := m.probe(ctx, conn)
	if st == StateReady {
		return conn.DB(), true
	}
	m.discard(conn, st)
	return nil, false
}

func (m *Manager) connect() (any, error) {
	// A caller may have raced past the fast path while a previous connect
	// was finishing.
	if db, ok := m.cached(context.Background()); ok {
		return db, nil
	}

	m.mu.Lock()
	m.transition(StateConnecting)
	m.mu.Unlock()
	attempt := m.attempts.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.ConnectTimeout)
	defer cancel()

	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		return nil, m.fail(nil, &ConnectionError{Op: "dial", Err: err})
	}
	if err := m.awaitReady(conn); err != nil {
		return nil, m.fail(conn, err)
	}

	if m.opts.OnConnect != nil {
		initCtx, initCancel := context.WithTimeout(context.Background(), m.opts.ConnectTimeout)
		err := m.opts.OnConnect(initCtx, conn.DB())
		initCancel()
		if err != nil {
			return nil, m.fail(conn, &ConnectionError{Op: "init", Err: err})
		}
	}

	m.mu.Lock()
	m.conn = conn
	m.transition(StateReady)
	m.mu.Unlock()

	metrics.DBConnectAttempts.WithLabelValues("success").Inc()
	m.log.Info().Str("event", "connected").Int64("attempt", attempt).Msg("store connected")
	return conn.DB(), nil
}

// awaitReady polls a freshly dialed conn until it reports ready. Some
// drivers hand back a conn before negotiation has finished. Polling stops
// after ReadyMaxAttempts probes or once ConnectTimeout has elapsed,
// whichever comes first.
func (m *Manager) awaitReady(conn Conn) error {
	deadline := time.Now().Add(m.opts.ConnectTimeout)
	wait := m.opts.ReadyPollInterval
	for probes := 1; ; probes++ {
		switch m.probe(context.Background(), conn) {
		case StateReady:
			return nil
		case StateDisconnected:
			return &ConnectionError{Op: "ready", Err: ErrDisconnected}
		}
		if probes >= m.opts.ReadyMaxAttempts || time.Until(deadline) < wait {
			return &ConnectionError{Op: "ready", Err: fmt.Errorf("%w after %d probes", ErrNotReady, probes)}
		}
		time.Sleep(wait)
		wait = min(wait*2, m.opts.ReadyPollMaxInterval)
	}
}

// probe runs conn.Probe under the probe timeout. Caller cancellation does not
// apply: an abandoned request must not make a healthy handle look dead.
func (m *Manager) probe(ctx context.Context, conn Conn) State {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ProbeTimeout)
	defer cancel()
	return conn.Probe(ctx)
}

func (m *Manager) discard(conn Conn, observed State) {
	m.mu.Lock()
	if m.conn != conn {
		// Someone else already replaced it.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	if observed != StateDisconnected {
		m.transition(StateDegraded)
	}
	m.transition(StateDisconnected)
	m.mu.Unlock()

	metrics.DBHandleDiscards.Inc()
	if err := conn.Close(); err != nil {
		m.log.Debug().Err(err).Msg("close discarded handle")
	}
	m.log.Warn().Str("event", "disconnected").Str("probe", observed.String()).Msg("store disconnected")
}

func (m *Manager) fail(conn Conn, err error) error {
	if conn != nil {
		if cerr := conn.Close(); cerr != nil {
			m.log.Debug().Err(cerr).Msg("close failed handle")
		}
	}

	m.mu.Lock()
	m.conn = nil
	m.transition(StateFailed)
	m.transition(StateDisconnected)
	m.mu.Unlock()

	metrics.DBConnectAttempts.WithLabelValues("failure").Inc()
	m.log.Error().Str("event", "error").Err(err).Msg("store connection error")
	return err
}

// transition moves the state machine; callers hold m.mu.
func (m *Manager) transition(next State) {
	if !m.state.CanTransition(next) {
		m.log.Error().Str("from", m.state.String()).Str("to", next.String()).Msg("unexpected store state transition")
	}
	m.state = next
	metrics.DBState.Set(float64(next))
}
