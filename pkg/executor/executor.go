// Package executor drives the executor agent's whole lifecycle
// (spec.md §4.6): load pipeline, start heartbeat, interpret stages,
// compose and post the result. cmd/executor/main.go is a thin
// zap-logging wrapper around Run.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/netunicorn/netunicorn/pkg/domain"
	execconfig "github.com/netunicorn/netunicorn/pkg/executor/config"
	"github.com/netunicorn/netunicorn/pkg/executor/execlog"
	"github.com/netunicorn/netunicorn/pkg/executor/gatewayclient"
	"github.com/netunicorn/netunicorn/pkg/executor/heartbeat"
	"github.com/netunicorn/netunicorn/pkg/executor/interp"
	"github.com/netunicorn/netunicorn/pkg/internal/retry"
)

// LocalPipelinePath is where the compiler bakes the pipeline file into
// the built image, per spec.md §4.6 step 1's "local file placed inside
// the environment" (pkg/compiler's build recipe writes it here).
const LocalPipelinePath = "/netunicorn/pipeline.json"

// FetchCeiling bounds the gateway retry loop in spec.md §4.6 step 1's
// "retry with exponential backoff up to a fixed ceiling".
const FetchCeiling = 5 * time.Minute

// ResultBundle is the composite result posted to the gateway (spec.md
// §4.6 step 5): per-task history plus the captured log buffer.
type ResultBundle struct {
	History domain.History `json:"history"`
	Log     string         `json:"log"`
	Failed  bool           `json:"failed"`
}

// atomicState is a concurrency-safe holder for the executor's reported
// state, read by the heartbeat ticker and written by Run as the
// lifecycle advances.
type atomicState struct {
	v atomic.Value
}

func newAtomicState(initial domain.ExecutorState) *atomicState {
	s := &atomicState{}
	s.v.Store(initial)
	return s
}

func (s *atomicState) set(v domain.ExecutorState) { s.v.Store(v) }
func (s *atomicState) get() domain.ExecutorState  { return s.v.Load().(domain.ExecutorState) }

// Run executes one full pass of the executor lifecycle: LOADING ->
// EXECUTING -> REPORTING -> TERMINATED, or FAILED on a load error.
func Run(ctx context.Context, cfg execconfig.Config, registry interp.Registry, logger *zap.Logger, logbuf *execlog.Buffer) error {
	client := gatewayclient.New(cfg.GatewayEndpoint, cfg.ExecutorID, cfg.GatewayToken)
	state := newAtomicState(domain.ExecutorLoading)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	if cfg.Heartbeat {
		go heartbeat.Start(hbCtx, client, cfg.HeartbeatInterval, heartbeat.State{
			Current: state.get,
			Logf:    func(format string, args ...any) { logger.Sugar().Debugf(format, args...) },
		})
	}

	pipeline, err := loadPipeline(ctx, client, logger)
	if err != nil {
		state.set(domain.ExecutorFailed)
		_ = client.Heartbeat(ctx, domain.ExecutorFailed)
		return fmt.Errorf("executor: loading pipeline: %w", err)
	}

	state.set(domain.ExecutorExecuting)
	logger.Info("executing pipeline", zap.String("pipeline_id", pipeline.ID), zap.Int("stages", pipeline.StageCount()))

	history := interp.Run(ctx, pipeline, registry)

	state.set(domain.ExecutorReporting)

	failed := false
	for _, results := range history {
		if len(results) > 0 && results[len(results)-1].IsErr() {
			failed = true
			break
		}
	}

	bundle := ResultBundle{History: history, Log: logbuf.String(), Failed: failed}
	blob, err := json.Marshal(bundle)
	if err != nil {
		logger.Error("marshaling result bundle", zap.Error(err))
	} else if pipeline.ReportResults {
		if err := postResult(ctx, client, blob); err != nil {
			// Nothing left to retry against: the processor's keepalive
			// deadline (spec.md §9(a)) takes over once heartbeats stop.
			logger.Error("posting result", zap.Error(err))
		}
	} else {
		logger.Info("report_results is false, skipping result submission")
	}

	state.set(domain.ExecutorTerminated)
	_ = client.Heartbeat(ctx, domain.ExecutorTerminated)

	return nil
}

// loadPipeline implements spec.md §4.6 step 1: local file first, else
// gateway fetch with exponential backoff up to FetchCeiling.
func loadPipeline(ctx context.Context, client *gatewayclient.Client, logger *zap.Logger) (domain.Pipeline, error) {
	if blob, err := os.ReadFile(LocalPipelinePath); err == nil {
		var p domain.Pipeline
		if err := json.Unmarshal(blob, &p); err != nil {
			return domain.Pipeline{}, fmt.Errorf("decoding local pipeline file: %w", err)
		}
		logger.Info("loaded pipeline from local file", zap.String("path", LocalPipelinePath))
		return p, nil
	} else if !os.IsNotExist(err) {
		return domain.Pipeline{}, fmt.Errorf("reading local pipeline file: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchCeiling)
	defer cancel()

	backoff := retry.ExponentialBackoff(2*time.Second, 1.5)
	p, err := retry.Blocking(fetchCtx, backoff, func() (domain.Pipeline, error) {
		p, err := client.GetPipeline(fetchCtx)
		if err != nil {
			logger.Debug("pipeline fetch attempt failed, retrying", zap.Error(err))
			return domain.Pipeline{}, fmt.Errorf("%w: %v", retry.ErrRetry, err)
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Pipeline{}, fmt.Errorf("gateway: pipeline fetch did not succeed within %s: %w", FetchCeiling, err)
		}
		return domain.Pipeline{}, err
	}
	return p, nil
}

func postResult(ctx context.Context, client *gatewayclient.Client, body []byte) error {
	backoff := retry.ExponentialBackoff(time.Second, 2)
	resultCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := retry.Blocking(resultCtx, backoff, func() (struct{}, error) {
		if err := client.PostResult(resultCtx, body); err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", retry.ErrRetry, err)
		}
		return struct{}{}, nil
	})
	return err
}
