// Package events translates typed upstream mutation messages into action
// handler calls. The external API surface produces these messages 1:1 from
// caller mutations; this processor is the boundary between that transport
// and the write API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/philios33/predictor2-backend-sub000/internal/actions"
	"github.com/philios33/predictor2-backend-sub000/internal/entity"
)

// Message types produced by the upstream mutation API.
const (
	TypePutPlayer               = "PUT-PLAYER"
	TypePutTournament           = "PUT-TOURNAMENT"
	TypePutTournamentTeam       = "PUT-TOURNAMENT-TEAM"
	TypePutTournamentMatch      = "PUT-TOURNAMENT-MATCH"
	TypePutTournamentMatchScore = "PUT-TOURNAMENT-MATCH-SCORE"
	TypePutPlayerPrediction     = "PUT-PLAYER-PREDICTION"
	TypePutCompetition          = "PUT-COMPETITION"
	TypePlayerCompeting         = "PLAYER-COMPETING"
	TypePlayerNotCompeting      = "PLAYER-NOT-COMPETING"
)

// Message is one typed upstream mutation.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Payload shapes for messages that do not map to a single entity struct.

type matchScorePayload struct {
	TournamentID string             `json:"tournamentId"`
	MatchID      string             `json:"matchId"`
	Score        *entity.MatchScore `json:"score"`
}

type predictionPayload struct {
	PlayerID     string                  `json:"playerId"`
	TournamentID string                  `json:"tournamentId"`
	MatchID      string                  `json:"matchId"`
	Prediction   *entity.PredictionValue `json:"prediction"`
}

type competingPayload struct {
	PlayerID      string `json:"playerId"`
	CompetitionID string `json:"competitionId"`
	InitialPhase  int    `json:"initialPhase"`
	InitialPoints int    `json:"initialPoints"`
}

type notCompetingPayload struct {
	PlayerID      string `json:"playerId"`
	CompetitionID string `json:"competitionId"`
}

type matchPayload struct {
	TournamentID     string             `json:"tournamentId"`
	MatchID          string             `json:"matchId"`
	StageID          string             `json:"stageId"`
	HomeTeamID       string             `json:"homeTeamId"`
	AwayTeamID       string             `json:"awayTeamId"`
	ScheduledKickoff time.Time          `json:"scheduledKickoff"`
	GroupID          string             `json:"groupId"`
	Status           entity.MatchStatus `json:"status"`
	StatusMessage    string             `json:"statusMessage"`
}

// Processor dispatches messages to the action handler.
type Processor struct {
	handler *actions.Handler
}

// NewProcessor creates a Processor.
func NewProcessor(handler *actions.Handler) *Processor {
	return &Processor{handler: handler}
}

// Process applies one message. An unknown message type is a fatal error
// (a producer/consumer versioning mismatch), never silently dropped.
func (p *Processor) Process(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypePutPlayer:
		var player entity.Player
		if err := decode(msg, &player); err != nil {
			return err
		}
		return p.handler.PutPlayer(ctx, player)

	case TypePutTournament:
		var tournament entity.Tournament
		if err := decode(msg, &tournament); err != nil {
			return err
		}
		return p.handler.PutTournament(ctx, tournament)

	case TypePutTournamentTeam:
		var team entity.TournamentTeam
		if err := decode(msg, &team); err != nil {
			return err
		}
		return p.handler.PutTournamentTeam(ctx, team)

	case TypePutTournamentMatch:
		var payload matchPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		return p.handler.PutTournamentMatch(ctx, entity.TournamentMatch{
			TournamentID:     payload.TournamentID,
			MatchID:          payload.MatchID,
			StageID:          payload.StageID,
			HomeTeamID:       payload.HomeTeamID,
			AwayTeamID:       payload.AwayTeamID,
			ScheduledKickoff: payload.ScheduledKickoff,
			GroupID:          payload.GroupID,
			Status:           payload.Status,
			StatusMessage:    payload.StatusMessage,
		})

	case TypePutTournamentMatchScore:
		var payload matchScorePayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		return p.handler.PutTournamentMatchScore(ctx, payload.TournamentID, payload.MatchID, payload.Score)

	case TypePutPlayerPrediction:
		var payload predictionPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		return p.handler.PutPlayerPrediction(ctx, payload.PlayerID, payload.TournamentID, payload.MatchID, payload.Prediction)

	case TypePutCompetition:
		var competition entity.Competition
		if err := decode(msg, &competition); err != nil {
			return err
		}
		return p.handler.PutCompetition(ctx, competition)

	case TypePlayerCompeting:
		var payload competingPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		return p.handler.PlayerCompeting(ctx, payload.PlayerID, payload.CompetitionID, payload.InitialPhase, payload.InitialPoints)

	case TypePlayerNotCompeting:
		var payload notCompetingPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		return p.handler.PlayerNotCompeting(ctx, payload.PlayerID, payload.CompetitionID)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func decode(msg Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return nil
}
