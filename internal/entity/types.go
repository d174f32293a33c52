package entity

import "time"

// Player is a registered predictor account.
type Player struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Tournament is a real-world competition whose matches are predicted on.
type Tournament struct {
	TournamentID string `json:"tournamentId"`
	Name         string `json:"name"`
}

// TournamentTeam is a team entered into a tournament. GroupIDs places the
// team into one or more named league groups.
type TournamentTeam struct {
	TournamentID string   `json:"tournamentId"`
	TeamID       string   `json:"teamId"`
	Name         string   `json:"name"`
	ShortName    string   `json:"shortName"`
	Logo48       string   `json:"logo48"`
	GroupIDs     []string `json:"groupIds"`
}

// TournamentMatch is a scheduled fixture. StageID is a human-facing round
// label (e.g. "Week 1") independent of the computed phase. The score lives
// in a separate document so score changes never invalidate structure.
type TournamentMatch struct {
	TournamentID     string      `json:"tournamentId"`
	MatchID          string      `json:"matchId"`
	StageID          string      `json:"stageId"`
	HomeTeamID       string      `json:"homeTeamId"`
	AwayTeamID       string      `json:"awayTeamId"`
	ScheduledKickoff time.Time   `json:"scheduledKickoff"`
	GroupID          string      `json:"groupId"`
	Status           MatchStatus `json:"status"`
	StatusMessage    string      `json:"statusMessage,omitempty"`
}

// MatchScore is a reported result. IsFinalScore=false means the result is
// provisional and must not yet count toward standings.
type MatchScore struct {
	HomeGoals    int  `json:"homeGoals"`
	AwayGoals    int  `json:"awayGoals"`
	IsFinalScore bool `json:"isFinalScore"`
	GameMinute   *int `json:"gameMinute"`
}

// TournamentMatchScore holds the current (possibly absent) score of a match.
type TournamentMatchScore struct {
	TournamentID string      `json:"tournamentId"`
	MatchID      string      `json:"matchId"`
	Score        *MatchScore `json:"score"`
}

// Competition is a prediction league layered on one tournament.
type Competition struct {
	CompetitionID string `json:"competitionId"`
	TournamentID  string `json:"tournamentId"`
	Name          string `json:"name"`
	AdminPlayerID string `json:"adminPlayerId"`
}

// Competing records a player's membership of a competition. Presence of the
// document implies the player competes; removal implies they do not.
// InitialPhase and InitialPoints let a late joiner enter partway through.
type Competing struct {
	PlayerID      string `json:"playerId"`
	CompetitionID string `json:"competitionId"`
	InitialPhase  int    `json:"initialPhase"`
	InitialPoints int    `json:"initialPoints"`
}

// PredictedScore is a player's predicted scoreline for a match.
type PredictedScore struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// PredictionValue is the content of a prediction. IsBanker marks the
// player's double-down pick whose bonus is scaled by the banker multiplier.
type PredictionValue struct {
	Score    PredictedScore `json:"score"`
	IsBanker bool           `json:"isBanker"`
}

// Prediction holds a player's current (possibly withdrawn) prediction.
type Prediction struct {
	TournamentID string           `json:"tournamentId"`
	MatchID      string           `json:"matchId"`
	PlayerID     string           `json:"playerId"`
	Prediction   *PredictionValue `json:"prediction"`
}

// PlayerCompetitions indexes the competitions a player is a member of.
// Mirrored with CompetitionPlayers: both sides are always updated within
// one logical membership operation.
type PlayerCompetitions struct {
	PlayerID     string          `json:"playerId"`
	Competitions map[string]bool `json:"competitions"`
}

// CompetitionMember is the per-player entry of CompetitionPlayers.
type CompetitionMember struct {
	InitialPhase  int `json:"initialPhase"`
	InitialPoints int `json:"initialPoints"`
}

// CompetitionPlayers indexes the roster of a competition.
type CompetitionPlayers struct {
	CompetitionID string                       `json:"competitionId"`
	Players       map[string]CompetitionMember `json:"players"`
}
