package rebuild

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
	"github.com/philios33/predictor2-backend-sub000/internal/records"
	"github.com/philios33/predictor2-backend-sub000/internal/store"
)

// kickoffBase anchors all test fixtures on a Saturday 15:00 kickoff.
var kickoffBase = time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)

func newTestBuilder(t *testing.T) (*records.Records, *jobs.MemoryBus, *Builder) {
	t.Helper()
	recs := records.New(store.NewMemory())
	bus := jobs.NewMemoryBus()
	return recs, bus, NewBuilder(recs, bus)
}

func seedTournament(t *testing.T, ctx context.Context, recs *records.Records, tournamentID string) {
	t.Helper()
	require.NoError(t, recs.PutTournament(ctx, entity.Tournament{
		TournamentID: tournamentID,
		Name:         "Test Tournament " + tournamentID,
	}))
}

func seedTeam(t *testing.T, ctx context.Context, recs *records.Records, tournamentID, teamID string, groupIDs ...string) {
	t.Helper()
	if len(groupIDs) == 0 {
		groupIDs = []string{"PL"}
	}
	require.NoError(t, recs.PutTeam(ctx, entity.TournamentTeam{
		TournamentID: tournamentID,
		TeamID:       teamID,
		Name:         "Team " + teamID,
		ShortName:    teamID,
		GroupIDs:     groupIDs,
	}))
}

func fixture(tournamentID, matchID, stageID, homeID, awayID string, kickoff time.Time) entity.TournamentMatch {
	return entity.TournamentMatch{
		TournamentID:     tournamentID,
		MatchID:          matchID,
		StageID:          stageID,
		HomeTeamID:       homeID,
		AwayTeamID:       awayID,
		ScheduledKickoff: kickoff,
		GroupID:          "PL",
		Status:           entity.MatchOn,
	}
}

func seedMatch(t *testing.T, ctx context.Context, recs *records.Records, m entity.TournamentMatch) {
	t.Helper()
	require.NoError(t, recs.PutMatch(ctx, m))
}

func finalScore(home, away int) *entity.MatchScore {
	return &entity.MatchScore{HomeGoals: home, AwayGoals: away, IsFinalScore: true}
}

func seedScore(t *testing.T, ctx context.Context, recs *records.Records, tournamentID, matchID string, score *entity.MatchScore) {
	t.Helper()
	require.NoError(t, recs.PutMatchScore(ctx, entity.TournamentMatchScore{
		TournamentID: tournamentID,
		MatchID:      matchID,
		Score:        score,
	}))
}

// drainJobs consumes and acknowledges every queued job, returning them in
// queue order.
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

func tableMeta(t *testing.T, job jobs.Job) jobs.TournamentTableMeta {
	t.Helper()
	var meta jobs.TournamentTableMeta
	require.NoError(t, json.Unmarshal(job.Meta, &meta))
	return meta
}

func TestShouldRebuild_NilArtifact(t *testing.T) {
	fresh := entity.SourceHashes{"teams": "abc"}
	assert.True(t, ShouldRebuild(nil, fresh))
}

func TestShouldRebuild_AllHashesMatch(t *testing.T) {
	current := entity.SourceHashes{"teams": "abc", "matches": "def"}
	fresh := entity.SourceHashes{"teams": "abc", "matches": "def"}
	assert.False(t, ShouldRebuild(current, fresh))
}

func TestShouldRebuild_ChangedHash(t *testing.T) {
	current := entity.SourceHashes{"teams": "abc"}
	fresh := entity.SourceHashes{"teams": "xyz"}
	assert.True(t, ShouldRebuild(current, fresh))
}

func TestShouldRebuild_UnknownFreshSource(t *testing.T) {
	current := entity.SourceHashes{"teams": "abc"}
	fresh := entity.SourceHashes{"teams": "abc", "matches": "def"}
	assert.True(t, ShouldRebuild(current, fresh))
}

func TestShouldRebuild_StaleRecordedSourceIgnored(t *testing.T) {
	// A recorded source the fresh set no longer produces does not force a
	// rebuild on its own.
	current := entity.SourceHashes{"teams": "abc", "previousTables": "old"}
	fresh := entity.SourceHashes{"teams": "abc"}
	assert.False(t, ShouldRebuild(current, fresh))
}

func TestActivePhaseIDs_BoundsFanOutAtNow(t *testing.T) {
	ctx := context.Background()
	recs, _, b := newTestBuilder(t)

	seedTournament(t, ctx, recs, "t1")
	for _, teamID := range []string{"ARS", "CHE", "LIV", "MCI"} {
		seedTeam(t, ctx, recs, "t1", teamID)
	}
	seedMatch(t, ctx, recs, fixture("t1", "m1", "Week 1", "ARS", "CHE", kickoffBase))
	seedMatch(t, ctx, recs, fixture("t1", "m2", "Week 1", "LIV", "MCI", kickoffBase.Add(2*time.Hour)))
	seedMatch(t, ctx, recs, fixture("t1", "m3", "Week 2", "CHE", "ARS", kickoffBase.Add(7*24*time.Hour)))

	outcome, err := b.RebuildTournamentStructure(ctx, "t1", kickoffBase.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)

	// Only phase 0 has kicked off one hour in.
	active, err := ActivePhaseIDs(ctx, recs, "t1", 0, kickoffBase.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, active)

	// A week later both phases are active.
	active, err = ActivePhaseIDs(ctx, recs, "t1", 0, kickoffBase.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, active)

	// fromPhase skips earlier phases.
	active, err = ActivePhaseIDs(ctx, recs, "t1", 1, kickoffBase.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, active)
}

func TestActivePhaseIDs_NoStructure(t *testing.T) {
	ctx := context.Background()
	recs, _, _ := newTestBuilder(t)

	active, err := ActivePhaseIDs(ctx, recs, "missing", 0, kickoffBase)
	require.NoError(t, err)
	assert.Nil(t, active)
}
