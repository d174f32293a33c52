// Package jobs defines the rebuild job catalogue and the Job Bus consumed
// by the action handler and the builders.
//
// The catalogue is a closed enum: the consumer dispatches exhaustively over
// it, so adding a job type is a single-point, compile-checked change.
package jobs

import "encoding/json"

// Type identifies a rebuild job on the wire.
type Type string

const (
	// TypeRebuildTournamentStructure re-partitions a tournament's matches
	// into phases and refreshes the per-phase and per-match indexes.
	TypeRebuildTournamentStructure Type = "REBUILD-TOURNAMENT-STRUCTURE"

	// TypeRebuildTournamentTablePostPhase recomputes the cumulative league
	// tables of one tournament phase.
	TypeRebuildTournamentTablePostPhase Type = "REBUILD-TOURNAMENT-TABLE-POST-PHASE"

	// TypeRebuildCompetitionTablePostPhase rescores one competition's
	// standings for one tournament phase.
	TypeRebuildCompetitionTablePostPhase Type = "REBUILD-COMPETITION-TABLE-POST-PHASE"
)

// TournamentStructureMeta is the payload of TypeRebuildTournamentStructure.
type TournamentStructureMeta struct {
	TournamentID string `json:"tournamentId"`
}

// TournamentTableMeta is the payload of TypeRebuildTournamentTablePostPhase.
type TournamentTableMeta struct {
	TournamentID string `json:"tournamentId"`
	PhaseID      int    `json:"phaseId"`
}

// CompetitionTableMeta is the payload of TypeRebuildCompetitionTablePostPhase.
type CompetitionTableMeta struct {
	CompetitionID string `json:"competitionId"`
	PhaseID       int    `json:"phaseId"`
}

// Job is one queued unit of rebuild work.
type Job struct {
	ID   string          `json:"id"`
	Type Type            `json:"type"`
	Meta json.RawMessage `json:"meta"`
}
