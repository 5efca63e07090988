package db

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// State describe la conexion con el store.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// StatusReporter expone el estado de conexion para el health check.
type StatusReporter interface {
	State() State
}

// StaticStatus reporta siempre el mismo estado (store en memoria).
type StaticStatus State

func (s StaticStatus) State() State { return State(s) }

// Pinger es el subconjunto de pgxpool.Pool que necesita el Manager.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ManagerOptions struct {
	RetryDelay   time.Duration
	PingInterval time.Duration
	PingTimeout  time.Duration
	// Migrate corre una sola vez tras la primera conexion exitosa.
	Migrate func(ctx context.Context) error
}

// Manager es dueño de la conexion al store: la establece en background con
// reintentos a intervalo fijo y la vigila con pings periodicos.
type Manager struct {
	logger  *zap.Logger
	pinger  Pinger
	opts    ManagerOptions
	state   atomic.Value
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	// migrated solo lo toca la goroutine de run.
	migrated bool
}

func NewManager(logger *zap.Logger, pinger Pinger, opts ManagerOptions) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 15 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}
	m := &Manager{logger: logger, pinger: pinger, opts: opts}
	m.state.Store(StateConnecting)
	return m
}

// Start lanza la conexion y el monitor. No bloquea.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
}

// Close detiene el monitor y espera a que termine.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) State() State {
	return m.state.Load().(State)
}

func (m *Manager) setState(s State) {
	prev := m.State()
	m.state.Store(s)
	if prev != s {
		m.logger.Info("store connection state changed", zap.String("from", string(prev)), zap.String("to", string(s)))
	}
}

func (m *Manager) run(ctx context.Context) {
	if err := m.connect(ctx); err != nil {
		return
	}

	ticker := time.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.ping(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("store ping failed, reconnecting", zap.Error(err))
				m.setState(StateDisconnected)
				// Reconectar al ritmo de RetryDelay, no de PingInterval.
				if err := m.connect(ctx); err != nil {
					return
				}
				ticker.Reset(m.opts.PingInterval)
				continue
			}
			m.setState(StateConnected)
		}
	}
}

func (m *Manager) connect(ctx context.Context) error {
	backoff := retry.NewConstant(m.opts.RetryDelay)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		m.logger.Info("connecting to store")
		if err := m.ping(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error("store connection failed", zap.Error(err), zap.Duration("retry_in", m.opts.RetryDelay))
			m.setState(StateDisconnected)
			return retry.RetryableError(err)
		}
		if !m.migrated && m.opts.Migrate != nil {
			if err := m.opts.Migrate(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.logger.Error("store migration failed", zap.Error(err), zap.Duration("retry_in", m.opts.RetryDelay))
				m.setState(StateDisconnected)
				return retry.RetryableError(err)
			}
			m.migrated = true
		}
		m.setState(StateConnected)
		m.logger.Info("store connected")
		return nil
	})
}

func (m *Manager) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.PingTimeout)
	defer cancel()
	return m.pinger.Ping(ctx)
}
