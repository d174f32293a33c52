// Package worker drains the job bus and dispatches each job to the
// matching builder.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/rebuild"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
)

// Consumer pops jobs one at a time, runs the matching builder and records
// a human-readable trace of the work performed. Each Consumer instance
// holds at most one in-flight job; the bus contract enforces this.
type Consumer struct {
	bus     jobs.Bus
	builder *rebuild.Builder
}

// NewConsumer creates a Consumer over the given records layer and bus.
func NewConsumer(recs *records.Records, bus jobs.Bus) *Consumer {
	return &Consumer{
		bus:     bus,
		builder: rebuild.NewBuilder(recs, bus),
	}
}

// ProcessJob dispatches one job to its builder and returns the trace
// identifier for it. An unknown job type is a fatal error: it signals a
// versioning mismatch between producer and consumer and must crash the
// worker rather than silently drop work.
//
// Builder soft-skips (predecessor artifacts not yet built) are absorbed
// here: the job still completes successfully, and the predecessor's own
// rebuild will retrigger the skipped work. This avoids poison-queue loops
// while dependency data is still propagating.
func (c *Consumer) ProcessJob(ctx context.Context, job *jobs.Job, now time.Time) (string, error) {
	switch job.Type {
	case jobs.TypeRebuildTournamentStructure:
		var meta jobs.TournamentStructureMeta
		if err := json.Unmarshal(job.Meta, &meta); err != nil {
			return "", fmt.Errorf("job %s: decode meta: %w", job.ID, err)
		}
		outcome, err := c.builder.RebuildTournamentStructure(ctx, meta.TournamentID, now)
		if err != nil {
			return "", fmt.Errorf("rebuild structure %s: %w", meta.TournamentID, err)
		}
		logOutcome(job, outcome)
		return trace(job.Type, meta.TournamentID), nil

	case jobs.TypeRebuildTournamentTablePostPhase:
		var meta jobs.TournamentTableMeta
		if err := json.Unmarshal(job.Meta, &meta); err != nil {
			return "", fmt.Errorf("job %s: decode meta: %w", job.ID, err)
		}
		outcome, err := c.builder.RebuildTournamentTablePostPhase(ctx, meta.TournamentID, meta.PhaseID)
		if err != nil {
			return "", fmt.Errorf("rebuild tournament table %s phase %d: %w", meta.TournamentID, meta.PhaseID, err)
		}
		logOutcome(job, outcome)
		return trace(job.Type, meta.TournamentID, strconv.Itoa(meta.PhaseID)), nil

	case jobs.TypeRebuildCompetitionTablePostPhase:
		var meta jobs.CompetitionTableMeta
		if err := json.Unmarshal(job.Meta, &meta); err != nil {
			return "", fmt.Errorf("job %s: decode meta: %w", job.ID, err)
		}
		outcome, err := c.builder.RebuildCompetitionTablePostPhase(ctx, meta.CompetitionID, meta.PhaseID)
		if err != nil {
			return "", fmt.Errorf("rebuild competition table %s phase %d: %w", meta.CompetitionID, meta.PhaseID, err)
		}
		logOutcome(job, outcome)
		return trace(job.Type, meta.CompetitionID, strconv.Itoa(meta.PhaseID)), nil

	default:
		return "", fmt.Errorf("unknown job type %q (job %s)", job.Type, job.ID)
	}
}

// ProcessAllJobsNow drains the queue to empty, sequentially, returning the
// full ordered trace. This is the deterministic test harness entry point;
// its one-job-at-a-time contract matches the production loop.
func (c *Consumer) ProcessAllJobsNow(ctx context.Context, now time.Time) ([]string, error) {
	var traces []string
	for {
		job, err := c.bus.ConsumeNext(ctx)
		if err != nil {
			return traces, err
		}
		if job == nil {
			return traces, nil
		}

		id, err := c.ProcessJob(ctx, job, now)
		if err != nil {
			return traces, err
		}
		if err := c.bus.Acknowledge(ctx, job.ID); err != nil {
			return traces, err
		}
		traces = append(traces, id)
	}
}

func trace(jobType jobs.Type, parts ...string) string {
	out := string(jobType)
	for _, part := range parts {
		out += "_" + part
	}
	return out
}

func logOutcome(job *jobs.Job, outcome rebuild.Outcome) {
	switch outcome.Status {
	case rebuild.StatusNotReady:
		slog.Warn("job skipped, dependencies not ready",
			"job", job.ID, "type", job.Type, "reason", outcome.Reason)
	default:
		slog.Debug("job processed",
			"job", job.ID, "type", job.Type, "status", outcome.Status)
	}
}
