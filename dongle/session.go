/* carplaydongled - host-side protocol engine for CarPlay/Android Auto USB dongles
 *
 * Session drives the state machine, the initialization burst, and the
 * read/heartbeat background tasks on top of a Transport.
 */

package dongle

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexpevzner/carplaydongled/dongleconf"
	"github.com/alexpevzner/carplaydongled/internal/logger"
	"github.com/alexpevzner/carplaydongled/protocol"
	"github.com/alexpevzner/carplaydongled/usbtransport"
	"github.com/google/gousb"
)

// MaxErrors is the error-counter ceiling. On reaching it the session
// closes itself and emits a failure.
const MaxErrors = 5

// These govern the engine's timing and are package-level vars, not
// consts, so tests can shrink them instead of waiting out the real
// 1-2 second windows.
var (
	readTimeout              = 1000 * time.Millisecond
	heartbeatInterval        = 2 * time.Second
	wifiConnectDelay         = 1 * time.Second
	backgroundTaskJoinBudget = 3 * time.Second
)

// State is one of the session lifecycle states.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ErrNotInitialized is returned by Start when the session hasn't
// completed Initialize yet.
var ErrNotInitialized = errors.New("dongle: session not initialized")

// Session owns a Transport and drives the protocol engine's concurrency:
// one read task, one heartbeat task, plus any number of caller goroutines
// calling Send.
type Session struct {
	dispatcher

	log *logger.Logger

	state     int32 // State, accessed atomically
	transport *usbtransport.Transport

	errorCount  uint64 // atomic; incremented by the read task only
	writeErrors uint64 // atomic; observability only, never affects liveness

	cfg dongleconf.Config

	stopCh        chan struct{}
	readDone      chan struct{}
	heartbeatDone chan struct{}
	closeOnce     sync.Once
}

// New creates a Session in the Uninitialized state.
func New(log *logger.Logger) *Session {
	return &Session{log: log}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// ErrorCount returns the number of read/header errors counted so far
// toward MaxErrors.
func (s *Session) ErrorCount() uint64 {
	return atomic.LoadUint64(&s.errorCount)
}

// WriteErrors returns the number of OUT-endpoint write failures observed.
// Per the engine's error policy these never affect session liveness; this
// counter exists purely for observability (a dongle with a one-way-broken
// OUT endpoint would otherwise never surface as unhealthy).
func (s *Session) WriteErrors() uint64 {
	return atomic.LoadUint64(&s.writeErrors)
}

// Initialize claims the device's bulk IN/OUT endpoint pair through
// usbtransport.Open. Re-entry while already Initialized (or later) is a
// no-op, matching the engine's idempotent-initialize contract.
func (s *Session) Initialize(device *gousb.Device) error {
	if s.State() != StateUninitialized {
		return nil
	}
	tr, err := usbtransport.Open(device)
	if err != nil {
		return err
	}
	return s.InitializeTransport(tr)
}

// InitializeTransport installs an already-open Transport directly,
// bypassing gousb device discovery. Production code reaches this only
// through Initialize; tests use it to drive the session against a fake
// Transport.
func (s *Session) InitializeTransport(tr *usbtransport.Transport) error {
	if s.State() != StateUninitialized {
		return nil
	}
	s.transport = tr
	atomic.StoreInt32(&s.state, int32(StateInitialized))
	return nil
}

// Send serializes msg and writes it to the Transport's OUT endpoint. It
// returns (false, ErrNotInitialized) before Initialize has run. A write
// failure returns (false, nil): it is recorded in WriteErrors but neither
// increments the error ceiling nor closes the session, so a flaky
// OUT-only fault can recover on its own.
func (s *Session) Send(msg protocol.Sendable) (bool, error) {
	state := s.State()
	if state != StateInitialized && state != StateRunning {
		return false, ErrNotInitialized
	}

	buf := protocol.Encode(msg)
	n, err := s.transport.Write(buf)
	if err != nil {
		atomic.AddUint64(&s.writeErrors, 1)
		if s.log != nil {
			s.log.Error("write failed: %v", err)
		}
		return false, nil
	}
	return n == len(buf), nil
}

// Start requires Initialized. It resets the error counter, emits the
// initialization burst synchronously, then spawns the read and heartbeat
// tasks and transitions to Running.
func (s *Session) Start(cfg dongleconf.Config) error {
	if s.State() != StateInitialized {
		return ErrNotInitialized
	}

	atomic.StoreUint64(&s.errorCount, 0)
	s.cfg = cfg
	s.stopCh = make(chan struct{})
	s.readDone = make(chan struct{})
	s.heartbeatDone = make(chan struct{})
	s.closeOnce = sync.Once{}

	for _, msg := range initBurst(cfg) {
		s.Send(msg)
	}

	time.Sleep(wifiConnectDelay)
	s.Send(protocol.NewSendCommand("wifiConnect"))

	atomic.StoreInt32(&s.state, int32(StateRunning))

	go s.readLoop()
	go s.heartbeatLoop()

	return nil
}

// Close signals both background tasks to stop, joins them (each bounded
// by backgroundTaskJoinBudget), disposes the Transport, and transitions to
// Closed. It is idempotent and safe to call from any goroutine other than
// the read or heartbeat task itself.
func (s *Session) Close() {
	s.close(false, false)
}

// close performs the shared shutdown sequence. skipReadJoin/
// skipHeartbeatJoin are set when invoked from within the corresponding
// background task, which must not wait on its own completion.
func (s *Session) close(skipReadJoin, skipHeartbeatJoin bool) {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
		}
	})

	if !skipReadJoin && s.readDone != nil {
		waitWithTimeout(s.readDone, backgroundTaskJoinBudget)
	}
	if !skipHeartbeatJoin && s.heartbeatDone != nil {
		waitWithTimeout(s.heartbeatDone, backgroundTaskJoinBudget)
	}

	if s.transport != nil {
		s.transport.Dispose()
	}
	atomic.StoreInt32(&s.state, int32(StateClosed))
}

func waitWithTimeout(done <-chan struct{}, timeout time.Duration) {
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
