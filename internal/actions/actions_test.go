package actions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/rebuild"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
	"github.com/philios33/predictor2-backend-sub000/internal/store"
	"github.com/philios33/predictor2-backend-sub000/internal/testutil"
)

var kickoffBase = time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*records.Records, *jobs.MemoryBus, *testutil.Clock, *Handler) {
	t.Helper()
	recs := records.New(store.NewMemory())
	bus := jobs.NewMemoryBus()
	clock := testutil.NewClock(kickoffBase.Add(-24 * time.Hour))
	return recs, bus, clock, NewHandler(recs, bus, clock)
}

func drainJobs(t *testing.T, ctx context.Context, bus *jobs.MemoryBus) []jobs.Job {
	t.Helper()
	var drained []jobs.Job
	for {
		job, err := bus.ConsumeNext(ctx)
		require.NoError(t, err)
		if job == nil {
			return drained
		}
		drained = append(drained, *job)
		require.NoError(t, bus.Acknowledge(ctx, job.ID))
	}
}

// seedTournamentFixtures writes a two-phase tournament (one match a week
// apart) and builds its structure.
func seedTournamentFixtures(t *testing.T, ctx context.Context, recs *records.Records, bus *jobs.MemoryBus, h *Handler) {
	t.Helper()
	require.NoError(t, h.PutTournament(ctx, entity.Tournament{TournamentID: "t1", Name: "Test League"}))
	for _, teamID := range []string{"ARS", "CHE"} {
		require.NoError(t, h.PutTournamentTeam(ctx, entity.TournamentTeam{
			TournamentID: "t1",
			TeamID:       teamID,
			Name:         "Team " + teamID,
			GroupIDs:     []string{"PL"},
		}))
	}
	week := 7 * 24 * time.Hour
	require.NoError(t, h.PutTournamentMatch(ctx, entity.TournamentMatch{
		TournamentID: "t1", MatchID: "m1", StageID: "Week 1",
		HomeTeamID: "ARS", AwayTeamID: "CHE",
		ScheduledKickoff: kickoffBase, GroupID: "PL", Status: entity.MatchOn,
	}))
	require.NoError(t, h.PutTournamentMatch(ctx, entity.TournamentMatch{
		TournamentID: "t1", MatchID: "m2", StageID: "Week 2",
		HomeTeamID: "CHE", AwayTeamID: "ARS",
		ScheduledKickoff: kickoffBase.Add(week), GroupID: "PL", Status: entity.MatchOn,
	}))
	drainJobs(t, ctx, bus)

	builder := rebuild.NewBuilder(recs, bus)
	outcome, err := builder.RebuildTournamentStructure(ctx, "t1", kickoffBase.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, rebuild.StatusDone, outcome.Status)
	drainJobs(t, ctx, bus)
}

func TestHandler_RejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	recs, bus, _, h := newTestHandler(t)

	err := h.PutTournamentTeam(ctx, entity.TournamentTeam{TournamentID: "missing", TeamID: "ARS"})
	assert.True(t, IsUnknownEntity(err))

	require.NoError(t, h.PutTournament(ctx, entity.Tournament{TournamentID: "t1", Name: "Test"}))
	err = h.PutTournamentMatch(ctx, entity.TournamentMatch{
		TournamentID: "t1", MatchID: "m1", HomeTeamID: "ARS", AwayTeamID: "CHE",
	})
	assert.True(t, IsUnknownEntity(err))

	err = h.PutTournamentMatchScore(ctx, "t1", "m1", nil)
	assert.True(t, IsUnknownEntity(err))

	err = h.PutCompetition(ctx, entity.Competition{
		CompetitionID: "c1", TournamentID: "t1", AdminPlayerID: "nobody",
	})
	assert.True(t, IsUnknownEntity(err))

	err = h.PutPlayerPrediction(ctx, "nobody", "t1", "m1", nil)
	assert.True(t, IsUnknownEntity(err))

	// Rejected writes leave no documents and no jobs behind.
	match, err := recs.GetMatch(ctx, "t1", "m1")
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Zero(t, bus.Len())
}

func TestHandler_TeamAndMatchWritesEnqueueStructureRebuild(t *testing.T) {
	ctx := context.Background()
	_, bus, _, h := newTestHandler(t)

	require.NoError(t, h.PutTournament(ctx, entity.Tournament{TournamentID: "t1", Name: "Test"}))
	require.NoError(t, h.PutTournamentTeam(ctx, entity.TournamentTeam{
		TournamentID: "t1", TeamID: "ARS", Name: "Arsenal", GroupIDs: []string{"PL"},
	}))
	require.NoError(t, h.PutTournamentTeam(ctx, entity.TournamentTeam{
		TournamentID: "t1", TeamID: "CHE", Name: "Chelsea", GroupIDs: []string{"PL"},
	}))
	require.NoError(t, h.PutTournamentMatch(ctx, entity.TournamentMatch{
		TournamentID: "t1", MatchID: "m1", StageID: "Week 1",
		HomeTeamID: "ARS", AwayTeamID: "CHE",
		ScheduledKickoff: kickoffBase, GroupID: "PL", Status: entity.MatchOn,
	}))

	drained := drainJobs(t, ctx, bus)
	require.Len(t, drained, 3)
	for _, job := range drained {
		assert.Equal(t, jobs.TypeRebuildTournamentStructure, job.Type)
	}
}

func TestHandler_ScoreBeforePhaseAssignment(t *testing.T) {
	ctx := context.Background()
	_, bus, _, h := newTestHandler(t)

	require.NoError(t, h.PutTournament(ctx, entity.Tournament{TournamentID: "t1", Name: "Test"}))
	for _, teamID := range []string{"ARS", "CHE"} {
		require.NoError(t, h.PutTournamentTeam(ctx, entity.TournamentTeam{
			TournamentID: "t1", TeamID: teamID, GroupIDs: []string{"PL"},
		}))
	}
	require.NoError(t, h.PutTournamentMatch(ctx, entity.TournamentMatch{
		TournamentID: "t1", MatchID: "m1", StageID: "Week 1",
		HomeTeamID: "ARS", AwayTeamID: "CHE",
		ScheduledKickoff: kickoffBase, GroupID: "PL", Status: entity.MatchOn,
	}))
	drainJobs(t, ctx, bus)

	// No structure has been built: the score write falls back to a
	// structure rebuild instead of targeting a phase.
	require.NoError(t, h.PutTournamentMatchScore(ctx, "t1", "m1", &entity.MatchScore{
		HomeGoals: 1, AwayGoals: 0, IsFinalScore: true,
	}))

	drained := drainJobs(t, ctx, bus)
	require.Len(t, drained, 1)
	assert.Equal(t, jobs.TypeRebuildTournamentStructure, drained[0].Type)
}

func TestHandler_ScoreEnqueuesActivePhaseTables(t *testing.T) {
	ctx := context.Background()
	recs, bus, clock, h := newTestHandler(t)
	seedTournamentFixtures(t, ctx, recs, bus, h)

	// Mid phase 0: only phase 0 has started.
	clock.Set(kickoffBase.Add(2 * time.Hour))
	require.NoError(t, h.PutTournamentMatchScore(ctx, "t1", "m1", &entity.MatchScore{
		HomeGoals: 2, AwayGoals: 1, IsFinalScore: true,
	}))

	drained := drainJobs(t, ctx, bus)
	require.Len(t, drained, 1)
	assert.Equal(t, jobs.TypeRebuildTournamentTablePostPhase, drained[0].Type)
	var meta jobs.TournamentTableMeta
	require.NoError(t, json.Unmarshal(drained[0].Meta, &meta))
	assert.Equal(t, "t1", meta.TournamentID)
	assert.Equal(t, 0, meta.PhaseID)

	// A week on, a corrected phase 0 score retriggers phases 0 and 1.
	clock.Advance(7 * 24 * time.Hour)
	require.NoError(t, h.PutTournamentMatchScore(ctx, "t1", "m1", &entity.MatchScore{
		HomeGoals: 2, AwayGoals: 2, IsFinalScore: true,
	}))

	drained = drainJobs(t, ctx, bus)
	require.Len(t, drained, 2)
	phaseIDs := make([]int, 0, 2)
	for _, job := range drained {
		require.Equal(t, jobs.TypeRebuildTournamentTablePostPhase, job.Type)
		require.NoError(t, json.Unmarshal(job.Meta, &meta))
		phaseIDs = append(phaseIDs, meta.PhaseID)
	}
	assert.Equal(t, []int{0, 1}, phaseIDs)
}

func TestHandler_PredictionCascadesToPlayersCompetitions(t *testing.T) {
	ctx := context.Background()
	recs, bus, clock, h := newTestHandler(t)
	seedTournamentFixtures(t, ctx, recs, bus, h)

	clock.Set(kickoffBase.Add(time.Hour))
	require.NoError(t, h.PutPlayer(ctx, entity.Player{PlayerID: "p1", Name: "Alice"}))
	require.NoError(t, h.PutCompetition(ctx, entity.Competition{
		CompetitionID: "c1", TournamentID: "t1", Name: "Office", AdminPlayerID: "p1",
	}))
	require.NoError(t, h.PlayerCompeting(ctx, "p1", "c1", 0, 0))
	drainJobs(t, ctx, bus)

	require.NoError(t, h.PutPlayerPrediction(ctx, "p1", "t1", "m1", &entity.PredictionValue{
		Score: entity.PredictedScore{Home: 2, Away: 1},
	}))

	drained := drainJobs(t, ctx, bus)
	require.Len(t, drained, 1)
	assert.Equal(t, jobs.TypeRebuildCompetitionTablePostPhase, drained[0].Type)
	var meta jobs.CompetitionTableMeta
	require.NoError(t, json.Unmarshal(drained[0].Meta, &meta))
	assert.Equal(t, "c1", meta.CompetitionID)
	assert.Equal(t, 0, meta.PhaseID)
}

func TestHandler_PredictionWithoutMembershipsNoCascade(t *testing.T) {
	ctx := context.Background()
	recs, bus, clock, h := newTestHandler(t)
	seedTournamentFixtures(t, ctx, recs, bus, h)

	clock.Set(kickoffBase.Add(time.Hour))
	require.NoError(t, h.PutPlayer(ctx, entity.Player{PlayerID: "p1", Name: "Alice"}))
	require.NoError(t, h.PutPlayerPrediction(ctx, "p1", "t1", "m1", &entity.PredictionValue{
		Score: entity.PredictedScore{Home: 1, Away: 0},
	}))

	// The prediction is stored for later scoring, but with no memberships
	// there is nothing to rebuild.
	stored, err := recs.GetPrediction(ctx, "t1", "m1", "p1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Zero(t, bus.Len())
}
