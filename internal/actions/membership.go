package actions

import (
	"context"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
)

// Competition membership maintains two mirrored indexes alongside the
// Competing document: PlayerCompetitions (player to competition set) and
// CompetitionPlayers (competition to roster). Both sides are always
// updated within one logical operation, and the updates use idempotent set
// semantics so replaying an operation is harmless.

// PlayerCompeting adds or updates a player's membership of a competition.
// A redundant call with identical membership data is a no-op on the
// indexes and does not retrigger any rebuild.
func (h *Handler) PlayerCompeting(ctx context.Context, playerID, competitionID string, initialPhase, initialPoints int) error {
	if err := h.requirePlayer(ctx, playerID); err != nil {
		return err
	}
	competition, err := h.requireCompetition(ctx, competitionID)
	if err != nil {
		return err
	}

	incoming := entity.Competing{
		PlayerID:      playerID,
		CompetitionID: competitionID,
		InitialPhase:  initialPhase,
		InitialPoints: initialPoints,
	}
	existing, err := h.recs.GetCompeting(ctx, playerID, competitionID)
	if err != nil {
		return err
	}
	if existing != nil && *existing == incoming {
		return nil
	}

	if err := h.recs.PutCompeting(ctx, incoming); err != nil {
		return err
	}
	if err := h.updateIndexes(ctx, playerID, competitionID, &entity.CompetitionMember{
		InitialPhase:  initialPhase,
		InitialPoints: initialPoints,
	}); err != nil {
		return err
	}

	return h.enqueueCompetitionRebuilds(ctx, competition.TournamentID, competitionID, 0)
}

// PlayerNotCompeting removes a player's membership. Removing an absent
// membership is a no-op and does not retrigger any rebuild.
func (h *Handler) PlayerNotCompeting(ctx context.Context, playerID, competitionID string) error {
	if err := h.requirePlayer(ctx, playerID); err != nil {
		return err
	}
	competition, err := h.requireCompetition(ctx, competitionID)
	if err != nil {
		return err
	}

	existing, err := h.recs.GetCompeting(ctx, playerID, competitionID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if err := h.recs.RemoveCompeting(ctx, playerID, competitionID); err != nil {
		return err
	}
	if err := h.updateIndexes(ctx, playerID, competitionID, nil); err != nil {
		return err
	}

	return h.enqueueCompetitionRebuilds(ctx, competition.TournamentID, competitionID, 0)
}

// updateIndexes applies one membership change to both mirrored indexes.
// A nil member means removal.
func (h *Handler) updateIndexes(ctx context.Context, playerID, competitionID string, member *entity.CompetitionMember) error {
	playerIndex, err := h.recs.GetPlayerCompetitions(ctx, playerID)
	if err != nil {
		return err
	}
	if playerIndex == nil {
		playerIndex = &entity.PlayerCompetitions{
			PlayerID:     playerID,
			Competitions: make(map[string]bool),
		}
	}
	if playerIndex.Competitions == nil {
		playerIndex.Competitions = make(map[string]bool)
	}

	rosterIndex, err := h.recs.GetCompetitionPlayers(ctx, competitionID)
	if err != nil {
		return err
	}
	if rosterIndex == nil {
		rosterIndex = &entity.CompetitionPlayers{
			CompetitionID: competitionID,
			Players:       make(map[string]entity.CompetitionMember),
		}
	}
	if rosterIndex.Players == nil {
		rosterIndex.Players = make(map[string]entity.CompetitionMember)
	}

	if member != nil {
		playerIndex.Competitions[competitionID] = true
		rosterIndex.Players[playerID] = *member
	} else {
		delete(playerIndex.Competitions, competitionID)
		delete(rosterIndex.Players, playerID)
	}

	if err := h.recs.PutPlayerCompetitions(ctx, *playerIndex); err != nil {
		return err
	}
	return h.recs.PutCompetitionPlayers(ctx, *rosterIndex)
}
