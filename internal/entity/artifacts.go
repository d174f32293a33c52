package entity

import "time"

// SourceHashes records exactly which source snapshots produced a computed
// artifact, keyed by a stable source id. It is the sole staleness signal:
// an artifact is wholly recomputed when any fresh source hash differs, and
// left untouched otherwise.
type SourceHashes map[string]string

// TournamentMatchWithTeams is a match carrying a frozen snapshot of both
// teams' metadata. Freezing the snapshot means team-attribute edits do not
// silently invalidate every phase that mentions the team.
type TournamentMatchWithTeams struct {
	Match    TournamentMatch `json:"match"`
	HomeTeam TournamentTeam  `json:"homeTeam"`
	AwayTeam TournamentTeam  `json:"awayTeam"`
}

// TournamentPhaseStructure describes one computed phase: a contiguous,
// team-disjoint window of fixtures.
type TournamentPhaseStructure struct {
	TournamentID         string                     `json:"tournamentId"`
	PhaseID              int                        `json:"phaseId"`
	EarliestMatchKickoff time.Time                  `json:"earliestMatchKickoff"`
	LastMatchKickoff     time.Time                  `json:"lastMatchKickoff"`
	IncludedStages       []string                   `json:"includedStages"`
	StartingStages       []string                   `json:"startingStages"`
	Matches              []TournamentMatchWithTeams `json:"matches"`
}

// TournamentMatchPhase is the reverse index from a match to its phase.
type TournamentMatchPhase struct {
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
	PhaseID      int    `json:"phaseId"`
}

// TournamentStructure summarizes the phase partition of a tournament.
// LastPhaseID is -1 when the tournament has no matches yet.
// PhaseBeforeStageStarts maps each stage label to the phase immediately
// before the first phase containing that stage (-1 for stages starting in
// phase 0); downstream scoring uses it to pick the table snapshot that was
// current before a stage's matches began.
type TournamentStructure struct {
	TournamentID           string                               `json:"tournamentId"`
	LastPhaseID            int                                  `json:"lastPhaseId"`
	PhaseBeforeStageStarts map[string]int                       `json:"phaseBeforeStageStarts"`
	GroupTeams             map[string]map[string]TournamentTeam `json:"groupTeams"`
	SourceHashes           SourceHashes                         `json:"sourceHashes"`
}

// HomeAwayPoints accumulates one side (home or away) of a team's league
// record. PointsAgainst and GoalsAgainstOpponent are keyed by opponent team
// id and used only for head-to-head tie-breaking; they are stripped from
// published table rows.
type HomeAwayPoints struct {
	Played               int            `json:"played"`
	Wins                 int            `json:"wins"`
	Draws                int            `json:"draws"`
	Losses               int            `json:"losses"`
	GoalsFor             int            `json:"goalsFor"`
	GoalsAgainst         int            `json:"goalsAgainst"`
	Points               int            `json:"points"`
	PointsAgainst        map[string]int `json:"pointsAgainst"`
	GoalsScoredAgainst   map[string]int `json:"goalsScoredAgainst"`
}

// TeamPointsRow is a team's cumulative record split into home and away
// halves. The away half's GoalsScoredAgainst carries the away-goals
// head-to-head tie-breaker.
type TeamPointsRow struct {
	Home HomeAwayPoints `json:"home"`
	Away HomeAwayPoints `json:"away"`
}

// LeagueTableRow is one published row of a group's league table.
type LeagueTableRow struct {
	Rank           int    `json:"rank"`
	TeamID         string `json:"teamId"`
	TeamName       string `json:"teamName"`
	Played         int    `json:"played"`
	Wins           int    `json:"wins"`
	Draws          int    `json:"draws"`
	Losses         int    `json:"losses"`
	GoalsFor       int    `json:"goalsFor"`
	GoalsAgainst   int    `json:"goalsAgainst"`
	GoalDifference int    `json:"goalDifference"`
	Points         int    `json:"points"`
}

// LeagueTableSnapshot is a ranked group table.
type LeagueTableSnapshot struct {
	GroupID string           `json:"groupId"`
	Rows    []LeagueTableRow `json:"rows"`
}

// TournamentTablesPostPhase holds the cumulative league standings of every
// group after a phase's finalized results are applied.
type TournamentTablesPostPhase struct {
	TournamentID       string                              `json:"tournamentId"`
	PhaseID            int                                 `json:"phaseId"`
	CumGroupTeamPoints map[string]map[string]TeamPointsRow `json:"cumGroupTeamPoints"`
	LatestTables       map[string]LeagueTableSnapshot      `json:"latestTables"`
	MatchScores        map[string]*MatchScore              `json:"matchScores"`
	SourceHashes       SourceHashes                        `json:"sourceHashes"`
}

// PredictionResultType classifies a scored prediction.
type PredictionResultType string

const (
	// ResultMissed means no prediction was submitted for a finished match.
	ResultMissed PredictionResultType = "MISSED"
	// ResultCorrectScore means the exact scoreline was predicted.
	ResultCorrectScore PredictionResultType = "CORRECT_SCORE"
	// ResultCorrectGD means the goal difference matched but not the score.
	ResultCorrectGD PredictionResultType = "CORRECT_GD"
	// ResultCorrectResult means only the outcome (win/draw/loss) matched.
	ResultCorrectResult PredictionResultType = "CORRECT_RESULT"
	// ResultIncorrect means the predicted outcome was wrong.
	ResultIncorrect PredictionResultType = "INCORRECT_RESULT"
)

// PlayerMatchPoints is the per-player scoring breakdown for one match.
// BankerBonus is zero unless the prediction was flagged as the banker.
type PlayerMatchPoints struct {
	Type             PredictionResultType `json:"type"`
	Regular          int                  `json:"regular"`
	BankerBonus      int                  `json:"bankerBonus"`
	BankerMultiplier int                  `json:"bankerMultiplier"`
}

// PlayerStandingsRow is one published row of a competition table.
type PlayerStandingsRow struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Points     int    `json:"points"`
}

// CompetitionTablesPostPhase holds a competition's scored standings after a
// tournament phase.
type CompetitionTablesPostPhase struct {
	CompetitionID          string                                  `json:"competitionId"`
	PhaseID                int                                     `json:"phaseId"`
	MatchPlayerPredictions map[string]map[string]*PredictionValue  `json:"matchPlayerPredictions"`
	MatchPlayerPoints      map[string]map[string]PlayerMatchPoints `json:"matchPlayerPoints"`
	PlayerTotalPoints      map[string]int                          `json:"playerTotalPoints"`
	StandingsSnapshotAfter []PlayerStandingsRow                    `json:"standingsSnapshotAfter"`
	SourceHashes           SourceHashes                            `json:"sourceHashes"`
}
