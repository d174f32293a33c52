// Package rebuild implements the incremental rebuild engine: the three
// builder jobs that derive tournament structure, per-phase league tables
// and per-competition standings from mutable source entities.
//
// Every builder follows the same shape: load a fixed set of sources, hash
// them, compare against the hashes recorded on the stored artifact, skip
// when nothing changed, otherwise recompute the whole artifact in memory,
// store it in a single put, and enqueue any cascade jobs. Builders never
// partially update an artifact.
package rebuild

import (
	"context"
	"time"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
)

// Status is the three-way result of a builder run. Hard failures travel on
// the error channel instead.
type Status string

const (
	// StatusDone means the artifact was recomputed and stored.
	StatusDone Status = "DONE"

	// StatusUnchanged means every source hash matched the stored artifact,
	// so the run was an exact no-op with no cascade.
	StatusUnchanged Status = "UNCHANGED"

	// StatusNotReady means a required predecessor artifact is absent. The
	// run wrote nothing; the predecessor's own rebuild will retrigger this
	// one, so callers treat this as a soft skip, not an error.
	StatusNotReady Status = "NOT-READY"
)

// Outcome reports what a builder run did.
type Outcome struct {
	Status Status
	Reason string
}

func done() Outcome      { return Outcome{Status: StatusDone} }
func unchanged() Outcome { return Outcome{Status: StatusUnchanged} }

func notReady(reason string) Outcome {
	return Outcome{Status: StatusNotReady, Reason: reason}
}

// Source ids recorded in artifact sourceHashes maps. Ids are stable wire
// contract: renaming one forces a rebuild of every artifact.
const (
	srcTournament                = "tournament"
	srcTeams                     = "teams"
	srcMatches                   = "matches"
	srcStructure                 = "structure"
	srcPhaseStructure            = "phaseStructure"
	srcPreviousTables            = "previousTables"
	srcMatchScores               = "matchScores"
	srcTournamentTables          = "tournamentTables"
	srcPreviousCompetitionTables = "previousCompetitionTables"
	srcPredictions               = "predictions"
	srcCompetition               = "competition"
	srcRoster                    = "roster"
)

// ShouldRebuild decides whether a builder must recompute its artifact.
//
// Returns true when the artifact has never been built, or when any fresh
// source hash is missing from or differs from the recorded hashes. A fresh
// source id the artifact has never seen forces a rebuild too: an
// unexpected source is more likely implementation drift than a safe skip.
func ShouldRebuild(current entity.SourceHashes, fresh entity.SourceHashes) bool {
	if current == nil {
		return true
	}
	for id, hash := range fresh {
		recorded, ok := current[id]
		if !ok || recorded != hash {
			return true
		}
	}
	return false
}

// Builder executes rebuild jobs against the records layer and enqueues
// cascade jobs on the bus.
type Builder struct {
	recs *records.Records
	bus  jobs.Bus
}

// NewBuilder creates a Builder.
func NewBuilder(recs *records.Records, bus jobs.Bus) *Builder {
	return &Builder{recs: recs, bus: bus}
}

// ActivePhaseIDs returns the phase ids from fromPhase through the last
// phase whose earliest kickoff is at or before now. A phase that has not
// started needs no table yet, which bounds cascade fan-out for tournaments
// scheduled far in advance. Returns nil when the tournament structure has
// not been built.
func ActivePhaseIDs(ctx context.Context, recs *records.Records, tournamentID string, fromPhase int, now time.Time) ([]int, error) {
	structure, err := recs.GetTournamentStructure(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, nil
	}

	start := fromPhase
	if start < 0 {
		start = 0
	}

	var active []int
	for phaseID := start; phaseID <= structure.LastPhaseID; phaseID++ {
		ps, err := recs.GetPhaseStructure(ctx, tournamentID, phaseID)
		if err != nil {
			return nil, err
		}
		if ps == nil {
			break
		}
		if ps.EarliestMatchKickoff.After(now) {
			// Phases are ordered by kickoff; everything later is future too.
			break
		}
		active = append(active, phaseID)
	}
	return active, nil
}
