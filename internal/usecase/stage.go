package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"uigen/internal/domain/entity"
	"uigen/internal/domain/repository"
	"uigen/internal/metrics"
)

// StageRunner issues one provider call per stage under a bounded timeout.
// It never retries; a failed stage is reported back to the caller as-is.
type StageRunner struct {
	provider repository.AIProvider
	timeout  time.Duration
}

func NewStageRunner(provider repository.AIProvider, timeout time.Duration) *StageRunner {
	return &StageRunner{
		provider: provider,
		timeout:  timeout,
	}
}

func (r *StageRunner) Run(ctx context.Context, stage entity.Stage, prompt string) entity.StageResult {
	stageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.provider.Generate(stageCtx, prompt)
	res := entity.StageResult{Stage: stage, Duration: time.Since(start)}

	switch {
	case err != nil:
		res.Err = entity.NewGenerationError(stage, r.provider.Name(), err)
	case resp == nil || strings.TrimSpace(resp.Content) == "":
		res.Err = entity.NewGenerationError(stage, r.provider.Name(), errors.New("empty response from provider"))
	default:
		res.Text = resp.Content
	}

	metrics.ObserveAIRequest(r.provider.Name(), string(stage), resultLabel(res.Err), res.Duration)
	return res
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
