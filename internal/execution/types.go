package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

var (
	ErrNodeRefresh = errors.New("node refresh failed")
	// ErrNodeBusy is the cause of a skipped refresh whose node has not
	// returned from an earlier, timed out refresh.
	ErrNodeBusy = errors.New("previous refresh still running")
)

// Snapshot is the graph as seen by a single tick.
type Snapshot struct {
	Deps  edag.Dependencies
	Nodes map[etag.NodeTag]enode.Node
}

// Graph is the structure the scheduler executes. Acquire blocks structural
// mutation until release is called.
type Graph interface {
	Acquire() (snap Snapshot, release func())
}

// ErrorRecovery determines how the scheduler continues after a node failed.
type ErrorRecovery int

const (
	// RecoveryContinue keeps the previous outputs of the failed node and
	// carries on with the tick. This is the default.
	RecoveryContinue ErrorRecovery = iota
	// RecoveryStop finishes the current tick and deactivates the pipeline.
	RecoveryStop
)

// ErrorHandler is called for every failed node refresh and for failed ticks.
// node is the zero tag for tick level failures.
type ErrorHandler func(ctx context.Context, err error, node etag.NodeTag) ErrorRecovery

// DefaultErrorHandler keeps the pipeline running.
func DefaultErrorHandler() ErrorHandler {
	return func(ctx context.Context, err error, node etag.NodeTag) ErrorRecovery {
		return RecoveryContinue
	}
}

// RefreshStage tells how a refresh failed.
type RefreshStage string

const (
	StageRefresh RefreshStage = "refresh"
	StageTimeout RefreshStage = "timeout"
	StagePanic   RefreshStage = "panic"
	StageBusy    RefreshStage = "busy"
)

// RefreshError attributes a failure to the node that caused it.
type RefreshError struct {
	Cause error
	Stage RefreshStage
	Node  etag.NodeTag
	Tick  uint64
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s error in node %q (tick=%d): %v", e.Stage, e.Node, e.Tick, e.Cause)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrNodeRefresh, e.Cause}
}
