// Package entity defines the closed set of document types stored by the
// predictor engine: source-of-truth records written by the action handler,
// derived roster indexes, and computed standings artifacts.
//
// Every document is addressed by a composite key (entity kind plus an
// ordered list of key components) and is immutable-by-replacement: writes
// always replace the whole document under the same key.
package entity

import "strings"

// Kind identifies a document type.
type Kind string

// Source-of-truth kinds, written only by the action handler.
const (
	KindPlayer               Kind = "PLAYER"
	KindTournament           Kind = "TOURNAMENT"
	KindTournamentTeam       Kind = "TOURNAMENT-TEAM"
	KindTournamentMatch      Kind = "TOURNAMENT-MATCH"
	KindTournamentMatchScore Kind = "TOURNAMENT-MATCH-SCORE"
	KindCompetition          Kind = "COMPETITION"
	KindCompeting            Kind = "COMPETING"
	KindPrediction           Kind = "PREDICTION"
)

// Derived index kinds, maintained in lockstep by the action handler.
const (
	KindPlayerCompetitions Kind = "PLAYER-COMPETITIONS"
	KindCompetitionPlayers Kind = "COMPETITION-PLAYERS"
)

// Computed artifact kinds, written only by rebuild jobs.
const (
	KindTournamentStructure        Kind = "TOURNAMENT-STRUCTURE"
	KindTournamentPhaseStructure   Kind = "TOURNAMENT-PHASE-STRUCTURE"
	KindTournamentMatchPhase       Kind = "TOURNAMENT-MATCH-PHASE"
	KindTournamentTablesPostPhase  Kind = "TOURNAMENT-TABLES-POST-PHASE"
	KindCompetitionTablesPostPhase Kind = "COMPETITION-TABLES-POST-PHASE"
)

// keySeparator joins composite key components. Key components are entity
// ids and never contain it.
const keySeparator = "_"

// CompositeKey joins key components deterministically.
func CompositeKey(parts []string) string {
	return strings.Join(parts, keySeparator)
}

// SplitKey is the inverse of CompositeKey.
func SplitKey(key string) []string {
	return strings.Split(key, keySeparator)
}

// MatchStatus is the lifecycle state of a tournament match.
type MatchStatus string

const (
	// MatchOn means the match is scheduled or played as normal.
	MatchOn MatchStatus = "ON"
	// MatchPostponed means the match will happen at a later, unknown time.
	MatchPostponed MatchStatus = "POSTPONED"
	// MatchAbandoned means the match was stopped and will not resume.
	MatchAbandoned MatchStatus = "ABANDONED"
	// MatchDeleted means the fixture was removed from the schedule.
	// Deletion is a status value, not a document removal.
	MatchDeleted MatchStatus = "DELETED"
)
