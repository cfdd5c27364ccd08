package execution

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

func (s *Scheduler) handleInactive(ctx context.Context) {
	select {
	case <-s.wake:
	case <-s.closeRequested:
		s.changeState(StateCloseRequested)
	case <-ctx.Done():
		s.changeState(StateCloseRequested)
	}
}

func (s *Scheduler) handleActive(ctx context.Context) {
	s.statsMtx.Lock()
	wait := s.interval() - time.Since(s.lastTick)
	s.statsMtx.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.wake:
			// fps or state changed, recompute
			return
		case <-s.closeRequested:
			s.changeState(StateCloseRequested)
			return
		case <-ctx.Done():
			s.changeState(StateCloseRequested)
			return
		}
	}

	if err := s.Tick(ctx); err != nil {
		s.log.Error("Tick failed", "error", err)
	}
}

func (s *Scheduler) handleCloseRequested() {
	s.changeState(StateClosed)
}

// Tick runs one pass over the graph if the pipeline is active. Nodes run in
// waves: all nodes of a wave run concurrently and the next wave starts when
// every node of the previous one has finished. A failing node never fails
// the tick; a cyclic graph does and deactivates the pipeline.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.State() != StateActive {
		return nil
	}

	start := time.Now()
	s.statsMtx.Lock()
	s.lastTick = start
	tick := s.stats.Ticks + 1
	s.statsMtx.Unlock()

	snap, release := s.graph.Acquire()
	defer release()

	waves, err := snap.Deps.Waves()
	if err != nil {
		s.errorHandler(ctx, err, etag.NodeTag{})
		s.transition(StateInactive, StateActive)
		s.statsMtx.Lock()
		s.stats.LastError = err
		s.statsMtx.Unlock()
		return err
	}

	var failures uint64
	stop := false
	for _, wave := range waves {
		results := s.runWave(ctx, snap, wave, tick)
		for _, rerr := range results {
			if rerr == nil {
				continue
			}
			failures++
			if s.errorHandler(ctx, rerr, rerr.Node) == RecoveryStop {
				stop = true
			}
		}
	}

	if stop {
		s.log.Warn("Stopping pipeline after node failure")
		s.transition(StateInactive, StateActive)
	}

	s.statsMtx.Lock()
	s.stats.Ticks = tick
	s.stats.NodeFailures += failures
	s.stats.LastTick = start
	s.stats.LastDuration = time.Since(start)
	s.statsMtx.Unlock()

	s.log.Debug("Tick done", "tick", tick, "waves", len(waves), "failures", failures)
	return nil
}

// runWave refreshes every node of wave concurrently and waits for all of
// them. The returned slice holds one entry per node, nil on success.
func (s *Scheduler) runWave(ctx context.Context, snap Snapshot, wave []etag.NodeTag, tick uint64) []*RefreshError {
	results := make([]*RefreshError, len(wave))
	var grp errgroup.Group
	for i, tag := range wave {
		grp.Go(func() error {
			results[i] = s.refreshNode(ctx, snap, tag, tick)
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

type refreshResult struct {
	frame *enode.Frame
	msg   enode.Message
	err   error
	stage RefreshStage
}

func (s *Scheduler) refreshNode(ctx context.Context, snap Snapshot, tag etag.NodeTag, tick uint64) *RefreshError {
	node, ok := snap.Nodes[tag]
	if !ok {
		return &RefreshError{Cause: fmt.Errorf("no instance for %s", tag), Stage: StageRefresh, Node: tag, Tick: tick}
	}

	in := enode.Input{
		Tag:   tag,
		Links: snap.Deps.FanIn[tag],
		Bus:   s.bus,
	}

	done, ok := s.beginRefresh(tag)
	if !ok {
		s.log.Warn("Node still busy with an earlier refresh, skipping", "node", tag.String())
		return &RefreshError{Cause: ErrNodeBusy, Stage: StageBusy, Node: tag, Tick: tick}
	}

	nodeCtx, cancel := context.WithTimeout(ctx, s.nodeTimeout)
	defer cancel()

	resCh := make(chan refreshResult, 1)
	go func() {
		defer s.endRefresh(tag, done)
		defer func() {
			if r := recover(); r != nil {
				resCh <- refreshResult{err: fmt.Errorf("%v", r), stage: StagePanic}
			}
		}()
		f, m, err := s.interceptors.Execute(nodeCtx, in, node.Refresh)
		resCh <- refreshResult{frame: f, msg: m, err: err, stage: StageRefresh}
	}()

	var res refreshResult
	select {
	case res = <-resCh:
	case <-nodeCtx.Done():
		res = refreshResult{err: nodeCtx.Err(), stage: StageTimeout}
	}

	if res.err != nil {
		rerr := &RefreshError{Cause: res.err, Stage: res.stage, Node: tag, Tick: tick}
		s.log.Error("Node refresh failed, keeping previous output", "node", tag.String(), "stage", res.stage, "error", res.err)
		return rerr
	}

	s.bus.Set(tag, res.frame, res.msg)
	return nil
}
