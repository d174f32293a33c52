// Package actions is the write API of the predictor engine. Every
// operation validates referential integrity of the incoming mutation,
// writes the source entity and enqueues the rebuild jobs the change
// requires. The content-hash skip rule makes redundant enqueues cheap, so
// the cascade policy errs toward enqueueing.
package actions

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/rebuild"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
)

// Clock supplies the current time, which decides which phases count as
// active (started). Tests substitute a settable clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Handler validates and applies source entity writes.
type Handler struct {
	recs  *records.Records
	bus   jobs.Bus
	clock Clock
}

// NewHandler creates a Handler.
func NewHandler(recs *records.Records, bus jobs.Bus, clock Clock) *Handler {
	return &Handler{recs: recs, bus: bus, clock: clock}
}

// PutPlayer writes a player. Name and email changes alone do not affect
// standings, so no rebuild is enqueued.
func (h *Handler) PutPlayer(ctx context.Context, p entity.Player) error {
	return h.recs.PutPlayer(ctx, p)
}

// PutTournament writes a tournament. Write-only, no cascade.
func (h *Handler) PutTournament(ctx context.Context, t entity.Tournament) error {
	return h.recs.PutTournament(ctx, t)
}

// PutTournamentTeam writes a team and enqueues a structure rebuild: team
// changes can alter any phase's team index.
func (h *Handler) PutTournamentTeam(ctx context.Context, team entity.TournamentTeam) error {
	if err := h.requireTournament(ctx, team.TournamentID); err != nil {
		return err
	}
	if err := h.recs.PutTeam(ctx, team); err != nil {
		return err
	}
	return h.bus.Enqueue(ctx, jobs.TypeRebuildTournamentStructure, jobs.TournamentStructureMeta{
		TournamentID: team.TournamentID,
	})
}

// PutTournamentMatch writes a match and enqueues a structure rebuild:
// kickoff time changes can reshuffle phase boundaries.
func (h *Handler) PutTournamentMatch(ctx context.Context, match entity.TournamentMatch) error {
	if err := h.requireTournament(ctx, match.TournamentID); err != nil {
		return err
	}
	if err := h.requireTeam(ctx, match.TournamentID, match.HomeTeamID); err != nil {
		return err
	}
	if err := h.requireTeam(ctx, match.TournamentID, match.AwayTeamID); err != nil {
		return err
	}
	if err := h.recs.PutMatch(ctx, match); err != nil {
		return err
	}
	return h.bus.Enqueue(ctx, jobs.TypeRebuildTournamentStructure, jobs.TournamentStructureMeta{
		TournamentID: match.TournamentID,
	})
}

// PutTournamentMatchScore writes a score and retriggers league table
// rebuilds from the match's phase forward. Scores never affect earlier
// phases or structure.
func (h *Handler) PutTournamentMatchScore(ctx context.Context, tournamentID, matchID string, score *entity.MatchScore) error {
	if err := h.requireTournament(ctx, tournamentID); err != nil {
		return err
	}
	if err := h.requireMatch(ctx, tournamentID, matchID); err != nil {
		return err
	}
	if err := h.recs.PutMatchScore(ctx, entity.TournamentMatchScore{
		TournamentID: tournamentID,
		MatchID:      matchID,
		Score:        score,
	}); err != nil {
		return err
	}

	matchPhase, err := h.recs.GetMatchPhase(ctx, tournamentID, matchID)
	if err != nil {
		return err
	}
	if matchPhase == nil {
		// The match has no phase assignment yet; a structure rebuild will
		// assign one and cascade to the tables itself.
		slog.Debug("score written before phase assignment, requesting structure rebuild",
			"tournament", tournamentID, "match", matchID)
		return h.bus.Enqueue(ctx, jobs.TypeRebuildTournamentStructure, jobs.TournamentStructureMeta{
			TournamentID: tournamentID,
		})
	}

	active, err := rebuild.ActivePhaseIDs(ctx, h.recs, tournamentID, matchPhase.PhaseID, h.clock.Now())
	if err != nil {
		return err
	}
	for _, phaseID := range active {
		if err := h.bus.Enqueue(ctx, jobs.TypeRebuildTournamentTablePostPhase, jobs.TournamentTableMeta{
			TournamentID: tournamentID,
			PhaseID:      phaseID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// PutCompetition writes a competition and retriggers its standings for
// every phase that has started.
func (h *Handler) PutCompetition(ctx context.Context, c entity.Competition) error {
	if err := h.requirePlayer(ctx, c.AdminPlayerID); err != nil {
		return err
	}
	if err := h.requireTournament(ctx, c.TournamentID); err != nil {
		return err
	}
	if err := h.recs.PutCompetition(ctx, c); err != nil {
		return err
	}
	return h.enqueueCompetitionRebuilds(ctx, c.TournamentID, c.CompetitionID, 0)
}

// PutPlayerPrediction writes a prediction and retriggers standings from
// the match's phase forward for every competition that is built on this
// tournament and includes this player.
func (h *Handler) PutPlayerPrediction(ctx context.Context, playerID, tournamentID, matchID string, prediction *entity.PredictionValue) error {
	if err := h.requirePlayer(ctx, playerID); err != nil {
		return err
	}
	if err := h.requireTournament(ctx, tournamentID); err != nil {
		return err
	}
	if err := h.requireMatch(ctx, tournamentID, matchID); err != nil {
		return err
	}
	if err := h.recs.PutPrediction(ctx, entity.Prediction{
		TournamentID: tournamentID,
		MatchID:      matchID,
		PlayerID:     playerID,
		Prediction:   prediction,
	}); err != nil {
		return err
	}

	matchPhase, err := h.recs.GetMatchPhase(ctx, tournamentID, matchID)
	if err != nil {
		return err
	}
	if matchPhase == nil {
		slog.Debug("prediction written before phase assignment, requesting structure rebuild",
			"tournament", tournamentID, "match", matchID, "player", playerID)
		return h.bus.Enqueue(ctx, jobs.TypeRebuildTournamentStructure, jobs.TournamentStructureMeta{
			TournamentID: tournamentID,
		})
	}

	memberships, err := h.recs.GetPlayerCompetitions(ctx, playerID)
	if err != nil {
		return err
	}
	if memberships == nil {
		return nil
	}
	competitionIDs := make([]string, 0, len(memberships.Competitions))
	for competitionID, member := range memberships.Competitions {
		if member {
			competitionIDs = append(competitionIDs, competitionID)
		}
	}
	sort.Strings(competitionIDs)
	for _, competitionID := range competitionIDs {
		competition, err := h.recs.GetCompetition(ctx, competitionID)
		if err != nil {
			return err
		}
		if competition == nil || competition.TournamentID != tournamentID {
			continue
		}
		if err := h.enqueueCompetitionRebuilds(ctx, tournamentID, competitionID, matchPhase.PhaseID); err != nil {
			return err
		}
	}
	return nil
}

// enqueueCompetitionRebuilds enqueues standings rebuilds for every active
// phase of the tournament from fromPhase onward.
func (h *Handler) enqueueCompetitionRebuilds(ctx context.Context, tournamentID, competitionID string, fromPhase int) error {
	active, err := rebuild.ActivePhaseIDs(ctx, h.recs, tournamentID, fromPhase, h.clock.Now())
	if err != nil {
		return err
	}
	for _, phaseID := range active {
		if err := h.bus.Enqueue(ctx, jobs.TypeRebuildCompetitionTablePostPhase, jobs.CompetitionTableMeta{
			CompetitionID: competitionID,
			PhaseID:       phaseID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Validation helpers.

func (h *Handler) requirePlayer(ctx context.Context, playerID string) error {
	player, err := h.recs.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil {
		return &UnknownEntityError{Kind: entity.KindPlayer, ID: playerID}
	}
	return nil
}

func (h *Handler) requireTournament(ctx context.Context, tournamentID string) error {
	tournament, err := h.recs.GetTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament == nil {
		return &UnknownEntityError{Kind: entity.KindTournament, ID: tournamentID}
	}
	return nil
}

func (h *Handler) requireTeam(ctx context.Context, tournamentID, teamID string) error {
	team, err := h.recs.GetTeam(ctx, tournamentID, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return &UnknownEntityError{Kind: entity.KindTournamentTeam, ID: teamID}
	}
	return nil
}

func (h *Handler) requireMatch(ctx context.Context, tournamentID, matchID string) error {
	match, err := h.recs.GetMatch(ctx, tournamentID, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return &UnknownEntityError{Kind: entity.KindTournamentMatch, ID: matchID}
	}
	return nil
}

func (h *Handler) requireCompetition(ctx context.Context, competitionID string) (*entity.Competition, error) {
	competition, err := h.recs.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if competition == nil {
		return nil, &UnknownEntityError{Kind: entity.KindCompetition, ID: competitionID}
	}
	return competition, nil
}
