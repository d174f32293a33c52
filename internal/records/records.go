// Package records is the typed access layer over the generic document
// store. Each entity kind gets concrete read/write methods; the store
// itself stays generic over serialization only.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/store"
)

// Records wraps a store.Store with typed entity accessors.
type Records struct {
	store store.Store
}

// New creates a typed records layer over the given store.
func New(s store.Store) *Records {
	return &Records{store: s}
}

func put(ctx context.Context, s store.Store, kind entity.Kind, keyParts []string, lookupID string, meta any) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal %s %v: %w", kind, keyParts, err)
	}
	return s.Put(ctx, store.Document{
		Kind:     kind,
		Key:      keyParts,
		LookupID: lookupID,
		Meta:     raw,
	})
}

// getAs reads and decodes a document, returning nil when absent.
func getAs[T any](ctx context.Context, s store.Store, kind entity.Kind, keyParts []string) (*T, error) {
	doc, err := s.Get(ctx, kind, keyParts)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var meta T
	if err := json.Unmarshal(doc.Meta, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal %s %v: %w", kind, keyParts, err)
	}
	return &meta, nil
}

// listAs decodes all documents of a kind sharing a lookup id.
func listAs[T any](ctx context.Context, s store.Store, kind entity.Kind, lookupID string) ([]T, error) {
	docs, err := s.FindByLookupID(ctx, kind, lookupID)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var meta T
		if err := json.Unmarshal(doc.Meta, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal %s %v: %w", kind, doc.Key, err)
		}
		out = append(out, meta)
	}
	return out, nil
}

// Players

func (r *Records) GetPlayer(ctx context.Context, playerID string) (*entity.Player, error) {
	return getAs[entity.Player](ctx, r.store, entity.KindPlayer, []string{playerID})
}

func (r *Records) PutPlayer(ctx context.Context, p entity.Player) error {
	return put(ctx, r.store, entity.KindPlayer, []string{p.PlayerID}, "", p)
}

// Tournaments

func (r *Records) GetTournament(ctx context.Context, tournamentID string) (*entity.Tournament, error) {
	return getAs[entity.Tournament](ctx, r.store, entity.KindTournament, []string{tournamentID})
}

func (r *Records) PutTournament(ctx context.Context, t entity.Tournament) error {
	return put(ctx, r.store, entity.KindTournament, []string{t.TournamentID}, "", t)
}

// Teams

func (r *Records) GetTeam(ctx context.Context, tournamentID, teamID string) (*entity.TournamentTeam, error) {
	return getAs[entity.TournamentTeam](ctx, r.store, entity.KindTournamentTeam, []string{tournamentID, teamID})
}

func (r *Records) PutTeam(ctx context.Context, t entity.TournamentTeam) error {
	return put(ctx, r.store, entity.KindTournamentTeam, []string{t.TournamentID, t.TeamID}, t.TournamentID, t)
}

// ListTeams returns all teams of a tournament in team id order.
func (r *Records) ListTeams(ctx context.Context, tournamentID string) ([]entity.TournamentTeam, error) {
	return listAs[entity.TournamentTeam](ctx, r.store, entity.KindTournamentTeam, tournamentID)
}

// Matches

func (r *Records) GetMatch(ctx context.Context, tournamentID, matchID string) (*entity.TournamentMatch, error) {
	return getAs[entity.TournamentMatch](ctx, r.store, entity.KindTournamentMatch, []string{tournamentID, matchID})
}

func (r *Records) PutMatch(ctx context.Context, m entity.TournamentMatch) error {
	return put(ctx, r.store, entity.KindTournamentMatch, []string{m.TournamentID, m.MatchID}, m.TournamentID, m)
}

// ListMatches returns all matches of a tournament in match id order.
func (r *Records) ListMatches(ctx context.Context, tournamentID string) ([]entity.TournamentMatch, error) {
	return listAs[entity.TournamentMatch](ctx, r.store, entity.KindTournamentMatch, tournamentID)
}

// Match scores

func (r *Records) GetMatchScore(ctx context.Context, tournamentID, matchID string) (*entity.TournamentMatchScore, error) {
	return getAs[entity.TournamentMatchScore](ctx, r.store, entity.KindTournamentMatchScore, []string{tournamentID, matchID})
}

func (r *Records) PutMatchScore(ctx context.Context, s entity.TournamentMatchScore) error {
	return put(ctx, r.store, entity.KindTournamentMatchScore, []string{s.TournamentID, s.MatchID}, s.TournamentID, s)
}

// Competitions

func (r *Records) GetCompetition(ctx context.Context, competitionID string) (*entity.Competition, error) {
	return getAs[entity.Competition](ctx, r.store, entity.KindCompetition, []string{competitionID})
}

func (r *Records) PutCompetition(ctx context.Context, c entity.Competition) error {
	return put(ctx, r.store, entity.KindCompetition, []string{c.CompetitionID}, c.TournamentID, c)
}

// ListCompetitions returns all competitions built on a tournament.
func (r *Records) ListCompetitions(ctx context.Context, tournamentID string) ([]entity.Competition, error) {
	return listAs[entity.Competition](ctx, r.store, entity.KindCompetition, tournamentID)
}

// Competing membership + mirrored indexes

func (r *Records) GetCompeting(ctx context.Context, playerID, competitionID string) (*entity.Competing, error) {
	return getAs[entity.Competing](ctx, r.store, entity.KindCompeting, []string{playerID, competitionID})
}

func (r *Records) PutCompeting(ctx context.Context, c entity.Competing) error {
	return put(ctx, r.store, entity.KindCompeting, []string{c.PlayerID, c.CompetitionID}, c.CompetitionID, c)
}

func (r *Records) RemoveCompeting(ctx context.Context, playerID, competitionID string) error {
	return r.store.Remove(ctx, entity.KindCompeting, []string{playerID, competitionID})
}

func (r *Records) GetPlayerCompetitions(ctx context.Context, playerID string) (*entity.PlayerCompetitions, error) {
	return getAs[entity.PlayerCompetitions](ctx, r.store, entity.KindPlayerCompetitions, []string{playerID})
}

func (r *Records) PutPlayerCompetitions(ctx context.Context, pc entity.PlayerCompetitions) error {
	return put(ctx, r.store, entity.KindPlayerCompetitions, []string{pc.PlayerID}, "", pc)
}

func (r *Records) GetCompetitionPlayers(ctx context.Context, competitionID string) (*entity.CompetitionPlayers, error) {
	return getAs[entity.CompetitionPlayers](ctx, r.store, entity.KindCompetitionPlayers, []string{competitionID})
}

func (r *Records) PutCompetitionPlayers(ctx context.Context, cp entity.CompetitionPlayers) error {
	return put(ctx, r.store, entity.KindCompetitionPlayers, []string{cp.CompetitionID}, "", cp)
}

// Predictions

func (r *Records) GetPrediction(ctx context.Context, tournamentID, matchID, playerID string) (*entity.Prediction, error) {
	return getAs[entity.Prediction](ctx, r.store, entity.KindPrediction, []string{tournamentID, matchID, playerID})
}

func (r *Records) PutPrediction(ctx context.Context, p entity.Prediction) error {
	return put(ctx, r.store, entity.KindPrediction, []string{p.TournamentID, p.MatchID, p.PlayerID}, p.TournamentID, p)
}

// Computed artifacts

func (r *Records) GetTournamentStructure(ctx context.Context, tournamentID string) (*entity.TournamentStructure, error) {
	return getAs[entity.TournamentStructure](ctx, r.store, entity.KindTournamentStructure, []string{tournamentID})
}

func (r *Records) PutTournamentStructure(ctx context.Context, s entity.TournamentStructure) error {
	return put(ctx, r.store, entity.KindTournamentStructure, []string{s.TournamentID}, "", s)
}

func (r *Records) GetPhaseStructure(ctx context.Context, tournamentID string, phaseID int) (*entity.TournamentPhaseStructure, error) {
	return getAs[entity.TournamentPhaseStructure](ctx, r.store, entity.KindTournamentPhaseStructure, phaseKey(tournamentID, phaseID))
}

func (r *Records) PutPhaseStructure(ctx context.Context, ps entity.TournamentPhaseStructure) error {
	return put(ctx, r.store, entity.KindTournamentPhaseStructure, phaseKey(ps.TournamentID, ps.PhaseID), ps.TournamentID, ps)
}

func (r *Records) GetMatchPhase(ctx context.Context, tournamentID, matchID string) (*entity.TournamentMatchPhase, error) {
	return getAs[entity.TournamentMatchPhase](ctx, r.store, entity.KindTournamentMatchPhase, []string{tournamentID, matchID})
}

func (r *Records) PutMatchPhase(ctx context.Context, mp entity.TournamentMatchPhase) error {
	return put(ctx, r.store, entity.KindTournamentMatchPhase, []string{mp.TournamentID, mp.MatchID}, mp.TournamentID, mp)
}

func (r *Records) GetTournamentTables(ctx context.Context, tournamentID string, phaseID int) (*entity.TournamentTablesPostPhase, error) {
	return getAs[entity.TournamentTablesPostPhase](ctx, r.store, entity.KindTournamentTablesPostPhase, phaseKey(tournamentID, phaseID))
}

func (r *Records) PutTournamentTables(ctx context.Context, t entity.TournamentTablesPostPhase) error {
	return put(ctx, r.store, entity.KindTournamentTablesPostPhase, phaseKey(t.TournamentID, t.PhaseID), t.TournamentID, t)
}

func (r *Records) GetCompetitionTables(ctx context.Context, competitionID string, phaseID int) (*entity.CompetitionTablesPostPhase, error) {
	return getAs[entity.CompetitionTablesPostPhase](ctx, r.store, entity.KindCompetitionTablesPostPhase, phaseKey(competitionID, phaseID))
}

func (r *Records) PutCompetitionTables(ctx context.Context, t entity.CompetitionTablesPostPhase) error {
	return put(ctx, r.store, entity.KindCompetitionTablesPostPhase, phaseKey(t.CompetitionID, t.PhaseID), t.CompetitionID, t)
}

func phaseKey(id string, phaseID int) []string {
	return []string{id, strconv.Itoa(phaseID)}
}
