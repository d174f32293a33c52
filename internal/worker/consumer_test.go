package worker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philios33/predictor2-backend-sub000/internal/actions"
	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
	"github.com/philios33/predictor2-backend-sub000/internal/store"
	"github.com/philios33/predictor2-backend-sub000/internal/testutil"
)

var kickoffBase = time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)

func newTestWorker(t *testing.T) (*records.Records, *jobs.MemoryBus, *testutil.Clock, *actions.Handler, *Consumer) {
	t.Helper()
	recs := records.New(store.NewMemory())
	bus := jobs.NewMemoryBus()
	clock := testutil.NewClock(kickoffBase.Add(-24 * time.Hour))
	return recs, bus, clock, actions.NewHandler(recs, bus, clock), NewConsumer(recs, bus)
}

func TestProcessJob_UnknownTypeFails(t *testing.T) {
	ctx := context.Background()
	_, _, clock, _, consumer := newTestWorker(t)

	_, err := consumer.ProcessJob(ctx, &jobs.Job{
		ID:   "j1",
		Type: jobs.Type("REBUILD-EVERYTHING"),
		Meta: json.RawMessage(`{}`),
	}, clock.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestProcessJob_MalformedMetaFails(t *testing.T) {
	ctx := context.Background()
	_, _, clock, _, consumer := newTestWorker(t)

	_, err := consumer.ProcessJob(ctx, &jobs.Job{
		ID:   "j1",
		Type: jobs.TypeRebuildTournamentStructure,
		Meta: json.RawMessage(`not json`),
	}, clock.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode meta")
}

func TestProcessAllJobsNow_AbsorbsNotReady(t *testing.T) {
	ctx := context.Background()
	recs, bus, clock, _, consumer := newTestWorker(t)

	// A table job for a phase whose structure was never built soft-skips
	// but still completes and acknowledges.
	require.NoError(t, bus.Enqueue(ctx, jobs.TypeRebuildTournamentTablePostPhase, jobs.TournamentTableMeta{
		TournamentID: "t1",
		PhaseID:      1,
	}))

	traces, err := consumer.ProcessAllJobsNow(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"REBUILD-TOURNAMENT-TABLE-POST-PHASE_t1_1"}, traces)
	assert.Zero(t, bus.Len())

	tables, err := recs.GetTournamentTables(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Nil(t, tables)
}

// TestCascade_EndToEnd walks a full season slice through the write API and
// the worker: fixtures arrive, phase 0 finishes, phase 1 finishes, and
// every derived artifact appears exactly when its dependencies allow.
func TestCascade_EndToEnd(t *testing.T) {
	ctx := context.Background()
	recs, bus, clock, handler, consumer := newTestWorker(t)

	week := 7 * 24 * time.Hour
	var allTraces []string
	process := func() {
		t.Helper()
		traces, err := consumer.ProcessAllJobsNow(ctx, clock.Now())
		require.NoError(t, err)
		allTraces = append(allTraces, traces...)
	}

	// Fixtures arrive the day before the season.
	require.NoError(t, handler.PutTournament(ctx, entity.Tournament{TournamentID: "t1", Name: "Test League"}))
	for _, teamID := range []string{"ARS", "CHE", "LIV", "MCI"} {
		require.NoError(t, handler.PutTournamentTeam(ctx, entity.TournamentTeam{
			TournamentID: "t1",
			TeamID:       teamID,
			Name:         "Team " + teamID,
			GroupIDs:     []string{"PL"},
		}))
	}
	putMatch := func(matchID, stageID, homeID, awayID string, kickoff time.Time) {
		t.Helper()
		require.NoError(t, handler.PutTournamentMatch(ctx, entity.TournamentMatch{
			TournamentID: "t1", MatchID: matchID, StageID: stageID,
			HomeTeamID: homeID, AwayTeamID: awayID,
			ScheduledKickoff: kickoff, GroupID: "PL", Status: entity.MatchOn,
		}))
	}
	putMatch("m1", "Week 1", "ARS", "CHE", kickoffBase)
	putMatch("m2", "Week 1", "LIV", "MCI", kickoffBase.Add(2*time.Hour))
	putMatch("m3", "Week 2", "CHE", "LIV", kickoffBase.Add(week))
	putMatch("m4", "Week 2", "MCI", "ARS", kickoffBase.Add(week+2*time.Hour))

	require.NoError(t, handler.PutPlayer(ctx, entity.Player{PlayerID: "p1", Name: "Alice"}))
	require.NoError(t, handler.PutPlayer(ctx, entity.Player{PlayerID: "p2", Name: "Bob"}))
	require.NoError(t, handler.PutCompetition(ctx, entity.Competition{
		CompetitionID: "c1", TournamentID: "t1", Name: "Office League", AdminPlayerID: "p1",
	}))
	require.NoError(t, handler.PlayerCompeting(ctx, "p1", "c1", 0, 0))
	require.NoError(t, handler.PlayerCompeting(ctx, "p2", "c1", 0, 0))
	process()

	// No phase has started: structure exists, no tables yet.
	structure, err := recs.GetTournamentStructure(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, structure)
	assert.Equal(t, 1, structure.LastPhaseID)
	tables, err := recs.GetTournamentTables(ctx, "t1", 0)
	require.NoError(t, err)
	assert.Nil(t, tables)

	// Predictions go in an hour before kickoff; nothing to rebuild yet.
	clock.Set(kickoffBase.Add(-time.Hour))
	require.NoError(t, handler.PutPlayerPrediction(ctx, "p1", "t1", "m1", &entity.PredictionValue{
		Score: entity.PredictedScore{Home: 1, Away: 3}, IsBanker: true,
	}))
	require.NoError(t, handler.PutPlayerPrediction(ctx, "p2", "t1", "m1", &entity.PredictionValue{
		Score: entity.PredictedScore{Home: 2, Away: 1},
	}))
	require.NoError(t, handler.PutPlayerPrediction(ctx, "p2", "t1", "m2", &entity.PredictionValue{
		Score: entity.PredictedScore{Home: 1, Away: 0},
	}))
	assert.Zero(t, bus.Len())

	// Phase 0 results land. Only phase 0 artifacts may be built.
	clock.Set(kickoffBase.Add(30 * time.Hour))
	require.NoError(t, handler.PutTournamentMatchScore(ctx, "t1", "m1", &entity.MatchScore{
		HomeGoals: 1, AwayGoals: 3, IsFinalScore: true,
	}))
	require.NoError(t, handler.PutTournamentMatchScore(ctx, "t1", "m2", &entity.MatchScore{
		HomeGoals: 2, AwayGoals: 0, IsFinalScore: true,
	}))
	process()

	phase0, err := recs.GetTournamentTables(ctx, "t1", 0)
	require.NoError(t, err)
	require.NotNil(t, phase0)
	phase1, err := recs.GetTournamentTables(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Nil(t, phase1, "phase 1 must not be built before it starts")

	standings0, err := recs.GetCompetitionTables(ctx, "c1", 0)
	require.NoError(t, err)
	require.NotNil(t, standings0)
	// p1 bankered the exact 1-3 at the reduced multiplier (14), missed m2
	// (-1); p2 got m1 wrong (-1) and m2's result right (+2).
	assert.Equal(t, map[string]int{"p1": 13, "p2": 1}, standings0.PlayerTotalPoints)
	require.Len(t, standings0.StandingsSnapshotAfter, 2)
	assert.Equal(t, "p1", standings0.StandingsSnapshotAfter[0].PlayerID)

	// Week 2: one result in, one still to play.
	clock.Set(kickoffBase.Add(week + 3*time.Hour))
	require.NoError(t, handler.PutPlayerPrediction(ctx, "p2", "t1", "m3", &entity.PredictionValue{
		Score: entity.PredictedScore{Home: 0, Away: 0},
	}))
	process()
	require.NoError(t, handler.PutTournamentMatchScore(ctx, "t1", "m3", &entity.MatchScore{
		HomeGoals: 0, AwayGoals: 0, IsFinalScore: true,
	}))
	process()

	standings1, err := recs.GetCompetitionTables(ctx, "c1", 1)
	require.NoError(t, err)
	require.NotNil(t, standings1)
	// m3 ended 0-0: p1 missed it, p2 called the exact score. m4 has no
	// final score yet and contributes nothing.
	assert.Equal(t, map[string]int{"p1": 12, "p2": 8}, standings1.PlayerTotalPoints)

	// Replaying the same scores changes nothing and cascades nothing.
	require.NoError(t, handler.PutTournamentMatchScore(ctx, "t1", "m3", &entity.MatchScore{
		HomeGoals: 0, AwayGoals: 0, IsFinalScore: true,
	}))
	traces, err := consumer.ProcessAllJobsNow(ctx, clock.Now())
	require.NoError(t, err)
	allTraces = append(allTraces, traces...)

	g := goldie.New(t)
	g.Assert(t, "cascade_trace", []byte(strings.Join(allTraces, "\n")+"\n"))
}
