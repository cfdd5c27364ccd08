package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/birdayz/edgepipe/etag"
)

type State string

const (
	StateInactive       State = "INACTIVE"
	StateActive         State = "ACTIVE"
	StateCloseRequested State = "CLOSE_REQUESTED"
	StateClosed         State = "CLOSED"
)

const (
	DefaultFPS             = 30
	MinFPS                 = 1
	MaxFPS                 = 120
	DefaultNodeTimeout     = 5 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// ErrShutdownTimeout is returned when graceful shutdown exceeds the timeout
var ErrShutdownTimeout = errors.New("scheduler shutdown timed out")

// Config holds configuration for a Scheduler
type Config struct {
	FPS             int
	NodeTimeout     time.Duration
	ErrorHandler    ErrorHandler
	ShutdownTimeout time.Duration
	// Interceptors wrap every node refresh, first one outermost.
	Interceptors []RefreshInterceptor
}

// Stats describes the work done by a scheduler so far.
type Stats struct {
	Ticks        uint64
	NodeFailures uint64
	LastTick     time.Time
	LastDuration time.Duration
	LastError    error
}

// Scheduler drives ticks over a Graph. The pipeline state toggles between
// Inactive and Active through Start and Stop; ticks only execute while
// Active.
type Scheduler struct {
	log   *slog.Logger
	graph Graph
	bus   *Bus

	stateMtx sync.Mutex
	state    State

	fps          atomic.Int64
	nodeTimeout  time.Duration
	errorHandler ErrorHandler
	interceptors *InterceptorChain

	// running holds a channel per node whose refresh has not returned yet,
	// closed when it does. Timed out refreshes stay in here.
	runningMtx sync.Mutex
	running    map[etag.NodeTag]chan struct{}

	// wake interrupts the loop when state or fps changed.
	wake           chan struct{}
	closeRequested chan struct{}
	closeOnce      sync.Once
	started        atomic.Bool
	done           chan struct{}

	statsMtx sync.Mutex
	stats    Stats
	lastTick time.Time

	shutdownTimeout time.Duration
}

func NewScheduler(log *slog.Logger, graph Graph, bus *Bus, cfg Config) *Scheduler {
	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler()
	}
	nodeTimeout := cfg.NodeTimeout
	if nodeTimeout <= 0 {
		nodeTimeout = DefaultNodeTimeout
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	if bus == nil {
		bus = NewBus()
	}

	s := &Scheduler{
		log:             log,
		graph:           graph,
		bus:             bus,
		state:           StateInactive,
		nodeTimeout:     nodeTimeout,
		errorHandler:    errorHandler,
		wake:            make(chan struct{}, 1),
		closeRequested:  make(chan struct{}),
		done:            make(chan struct{}),
		shutdownTimeout: shutdownTimeout,
		interceptors:    ChainInterceptors(cfg.Interceptors...),
		running:         map[etag.NodeTag]chan struct{}{},
	}
	fps := cfg.FPS
	if fps == 0 {
		fps = DefaultFPS
	}
	s.SetFPS(fps)
	return s
}

func (s *Scheduler) Bus() *Bus { return s.bus }

func (s *Scheduler) State() State {
	s.stateMtx.Lock()
	defer s.stateMtx.Unlock()
	return s.state
}

func (s *Scheduler) changeState(newState State) {
	s.stateMtx.Lock()
	defer s.stateMtx.Unlock()
	s.changeStateLocked(newState)
}

func (s *Scheduler) changeStateLocked(newState State) {
	if s.state == newState {
		return
	}
	s.log.Info("Change state", "from", s.state, "to", newState)
	s.state = newState
}

// transition moves from one of the given states to newState and reports
// whether it did.
func (s *Scheduler) transition(newState State, from ...State) bool {
	s.stateMtx.Lock()
	defer s.stateMtx.Unlock()
	for _, st := range from {
		if s.state == st {
			s.changeStateLocked(newState)
			s.notify()
			return true
		}
	}
	return false
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start activates the pipeline. Coming from Inactive the bus is reset so
// the first tick starts from a clean slate. A tick still in progress
// finishes before the reset.
func (s *Scheduler) Start() {
	_, release := s.graph.Acquire()
	defer release()

	s.stateMtx.Lock()
	defer s.stateMtx.Unlock()
	if s.state != StateInactive {
		return
	}
	s.reinit()
	s.changeStateLocked(StateActive)
	s.notify()
}

// Stop deactivates the pipeline. Bus values are kept.
func (s *Scheduler) Stop() {
	s.transition(StateInactive, StateActive)
}

// Reinit clears the bus and restarts the tick clock. Like Start it waits
// for a running tick.
func (s *Scheduler) Reinit() {
	_, release := s.graph.Acquire()
	s.reinit()
	release()
	s.notify()
}

func (s *Scheduler) reinit() {
	s.bus.Reset()
	s.statsMtx.Lock()
	s.lastTick = time.Time{}
	s.statsMtx.Unlock()
}

// SetFPS changes the tick rate, clamped to [MinFPS, MaxFPS].
func (s *Scheduler) SetFPS(fps int) {
	s.fps.Store(int64(min(max(fps, MinFPS), MaxFPS)))
	s.notify()
}

func (s *Scheduler) FPS() int {
	return int(s.fps.Load())
}

func (s *Scheduler) interval() time.Duration {
	return time.Second / time.Duration(s.fps.Load())
}

// beginRefresh marks tag as refreshing. It fails if the previous refresh
// of tag has not returned.
func (s *Scheduler) beginRefresh(tag etag.NodeTag) (chan struct{}, bool) {
	s.runningMtx.Lock()
	defer s.runningMtx.Unlock()
	if _, busy := s.running[tag]; busy {
		return nil, false
	}
	done := make(chan struct{})
	s.running[tag] = done
	return done, true
}

func (s *Scheduler) endRefresh(tag etag.NodeTag, done chan struct{}) {
	s.runningMtx.Lock()
	if s.running[tag] == done {
		delete(s.running, tag)
	}
	s.runningMtx.Unlock()
	close(done)
}

// WaitIdle blocks until no refresh of tag is running, or ctx is done.
func (s *Scheduler) WaitIdle(ctx context.Context, tag etag.NodeTag) error {
	s.runningMtx.Lock()
	done, busy := s.running[tag]
	s.runningMtx.Unlock()
	if !busy {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("node %s still refreshing: %w", tag, ctx.Err())
	}
}

func (s *Scheduler) Stats() Stats {
	s.statsMtx.Lock()
	defer s.statsMtx.Unlock()
	return s.stats
}

// Run loops until Close is called or ctx is done.
// State transitions of the loop itself happen only in here.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer close(s.done)

	for {
		switch s.State() {
		case StateInactive:
			s.handleInactive(ctx)
		case StateActive:
			s.handleActive(ctx)
		case StateCloseRequested:
			s.handleCloseRequested()
		case StateClosed:
			return nil
		}
	}
}

// Close stops the loop and waits for it to exit. It is safe to call
// multiple times and before Run.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeRequested)
	})

	if !s.started.Load() {
		s.changeState(StateClosed)
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(s.shutdownTimeout):
		s.log.Error("Shutdown timeout exceeded", "timeout", s.shutdownTimeout)
		return ErrShutdownTimeout
	}
}
