package rebuild

import (
	"context"
	"log/slog"
	"sort"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/hashing"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
)

// RebuildTournamentTablePostPhase recomputes the cumulative league tables
// of one tournament phase: the previous phase's cumulative rows (or zeroed
// rows at phase 0) plus every finalized result of this phase, ranked per
// group with head-to-head tie-breaking.
//
// Sources hashed: this phase's structure, the previous phase's tables (for
// phase > 0), this phase's current match scores and the full team set.
//
// The previous phase's table must exist before this one can be computed.
// When it is absent the builder soft-skips: the predecessor's own rebuild
// will fire this phase again.
//
// After a real rebuild, enqueues a standings rebuild for the same phase of
// every competition built on the tournament.
func (b *Builder) RebuildTournamentTablePostPhase(ctx context.Context, tournamentID string, phaseID int) (Outcome, error) {
	phase, err := b.recs.GetPhaseStructure(ctx, tournamentID, phaseID)
	if err != nil {
		return Outcome{}, err
	}
	if phase == nil {
		slog.Warn("table rebuild skipped: phase structure absent",
			"tournament", tournamentID, "phase", phaseID)
		return notReady("phase structure absent"), nil
	}

	var previous *entity.TournamentTablesPostPhase
	if phaseID > 0 {
		previous, err = b.recs.GetTournamentTables(ctx, tournamentID, phaseID-1)
		if err != nil {
			return Outcome{}, err
		}
		if previous == nil {
			slog.Warn("table rebuild skipped: previous phase table absent",
				"tournament", tournamentID, "phase", phaseID)
			return notReady("previous phase table absent"), nil
		}
	}

	teams, err := b.recs.ListTeams(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}

	matchScores := make(map[string]*entity.MatchScore, len(phase.Matches))
	for _, m := range phase.Matches {
		stored, err := b.recs.GetMatchScore(ctx, tournamentID, m.Match.MatchID)
		if err != nil {
			return Outcome{}, err
		}
		if stored == nil {
			matchScores[m.Match.MatchID] = nil
		} else {
			matchScores[m.Match.MatchID] = stored.Score
		}
	}

	fresh := entity.SourceHashes{}
	if fresh[srcPhaseStructure], err = hashing.Hash(phase); err != nil {
		return Outcome{}, err
	}
	if previous != nil {
		if fresh[srcPreviousTables], err = hashing.Hash(previous); err != nil {
			return Outcome{}, err
		}
	}
	if fresh[srcMatchScores], err = hashing.Hash(matchScores); err != nil {
		return Outcome{}, err
	}
	if fresh[srcTeams], err = hashing.Hash(teams); err != nil {
		return Outcome{}, err
	}

	current, err := b.recs.GetTournamentTables(ctx, tournamentID, phaseID)
	if err != nil {
		return Outcome{}, err
	}
	var currentHashes entity.SourceHashes
	if current != nil {
		currentHashes = current.SourceHashes
	}
	if !ShouldRebuild(currentHashes, fresh) {
		slog.Debug("phase table unchanged, skipping",
			"tournament", tournamentID, "phase", phaseID)
		return unchanged(), nil
	}

	var cum map[string]map[string]entity.TeamPointsRow
	if previous != nil {
		cum = cloneCum(previous.CumGroupTeamPoints)
	} else {
		cum = make(map[string]map[string]entity.TeamPointsRow)
		for _, team := range teams {
			for _, groupID := range team.GroupIDs {
				ensureRow(cum, groupID, team.TeamID)
			}
		}
	}

	for _, m := range phase.Matches {
		match := m.Match
		if match.Status != entity.MatchOn {
			continue
		}
		score := matchScores[match.MatchID]
		if score == nil || !score.IsFinalScore {
			continue
		}

		homeRow := ensureRow(cum, match.GroupID, match.HomeTeamID)
		awayRow := ensureRow(cum, match.GroupID, match.AwayTeamID)

		applyResult(&homeRow.Home, match.AwayTeamID, score.HomeGoals, score.AwayGoals)
		applyResult(&awayRow.Away, match.HomeTeamID, score.AwayGoals, score.HomeGoals)

		cum[match.GroupID][match.HomeTeamID] = *homeRow
		cum[match.GroupID][match.AwayTeamID] = *awayRow
	}

	teamNames := make(map[string]string, len(teams))
	for _, team := range teams {
		teamNames[team.TeamID] = team.Name
	}

	latestTables := make(map[string]entity.LeagueTableSnapshot, len(cum))
	for groupID, rows := range cum {
		latestTables[groupID] = rankGroup(groupID, rows, teamNames)
	}

	tables := entity.TournamentTablesPostPhase{
		TournamentID:       tournamentID,
		PhaseID:            phaseID,
		CumGroupTeamPoints: cum,
		LatestTables:       latestTables,
		MatchScores:        matchScores,
		SourceHashes:       fresh,
	}
	if err := b.recs.PutTournamentTables(ctx, tables); err != nil {
		return Outcome{}, err
	}

	slog.Info("tournament phase table rebuilt",
		"tournament", tournamentID, "phase", phaseID)

	competitions, err := b.recs.ListCompetitions(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}
	for _, competition := range competitions {
		if err := b.bus.Enqueue(ctx, jobs.TypeRebuildCompetitionTablePostPhase, jobs.CompetitionTableMeta{
			CompetitionID: competition.CompetitionID,
			PhaseID:       phaseID,
		}); err != nil {
			return Outcome{}, err
		}
	}

	return done(), nil
}

// applyResult folds one finalized result into a team's home or away record.
// Head-to-head bookkeeping is keyed by opponent id and consulted only when
// two teams are level on everything else.
func applyResult(row *entity.HomeAwayPoints, opponentID string, scored, conceded int) {
	row.Played++
	row.GoalsFor += scored
	row.GoalsAgainst += conceded

	var points int
	switch {
	case scored > conceded:
		row.Wins++
		points = 3
	case scored == conceded:
		row.Draws++
		points = 1
	default:
		row.Losses++
		points = 0
	}
	row.Points += points

	if row.PointsAgainst == nil {
		row.PointsAgainst = make(map[string]int)
	}
	if row.GoalsScoredAgainst == nil {
		row.GoalsScoredAgainst = make(map[string]int)
	}
	row.PointsAgainst[opponentID] += points
	row.GoalsScoredAgainst[opponentID] += scored
}

// combinedRow merges a team's home and away halves for ranking.
type combinedRow struct {
	teamID       string
	played       int
	wins         int
	draws        int
	losses       int
	goalsFor     int
	goalsAgainst int
	points       int

	h2hPoints    map[string]int
	h2hAwayGoals map[string]int
}

func (r combinedRow) goalDifference() int { return r.goalsFor - r.goalsAgainst }

func combine(teamID string, row entity.TeamPointsRow) combinedRow {
	out := combinedRow{
		teamID:       teamID,
		played:       row.Home.Played + row.Away.Played,
		wins:         row.Home.Wins + row.Away.Wins,
		draws:        row.Home.Draws + row.Away.Draws,
		losses:       row.Home.Losses + row.Away.Losses,
		goalsFor:     row.Home.GoalsFor + row.Away.GoalsFor,
		goalsAgainst: row.Home.GoalsAgainst + row.Away.GoalsAgainst,
		points:       row.Home.Points + row.Away.Points,
		h2hPoints:    make(map[string]int),
		// Away goals only: the classic away-goals head-to-head rule.
		h2hAwayGoals: row.Away.GoalsScoredAgainst,
	}
	for opp, pts := range row.Home.PointsAgainst {
		out.h2hPoints[opp] += pts
	}
	for opp, pts := range row.Away.PointsAgainst {
		out.h2hPoints[opp] += pts
	}
	if out.h2hAwayGoals == nil {
		out.h2hAwayGoals = make(map[string]int)
	}
	return out
}

// rankGroup ranks one group's combined rows.
//
// Sort order: points, then goal difference, then goals scored, then
// head-to-head points against the tied opponent, then head-to-head away
// goals against that opponent, with team id as the final deterministic
// tie-break. Ranks follow competition ("1223") numbering: teams equal on
// every compared dimension share a rank, and the next distinct row gets
// rank = row index + 1.
func rankGroup(groupID string, rows map[string]entity.TeamPointsRow, teamNames map[string]string) entity.LeagueTableSnapshot {
	combined := make([]combinedRow, 0, len(rows))
	for teamID, row := range rows {
		combined = append(combined, combine(teamID, row))
	}

	sort.SliceStable(combined, func(i, j int) bool {
		a, b := combined[i], combined[j]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.goalDifference() != b.goalDifference() {
			return a.goalDifference() > b.goalDifference()
		}
		if a.goalsFor != b.goalsFor {
			return a.goalsFor > b.goalsFor
		}
		if a.h2hPoints[b.teamID] != b.h2hPoints[a.teamID] {
			return a.h2hPoints[b.teamID] > b.h2hPoints[a.teamID]
		}
		if a.h2hAwayGoals[b.teamID] != b.h2hAwayGoals[a.teamID] {
			return a.h2hAwayGoals[b.teamID] > b.h2hAwayGoals[a.teamID]
		}
		return a.teamID < b.teamID
	})

	snapshot := entity.LeagueTableSnapshot{
		GroupID: groupID,
		Rows:    make([]entity.LeagueTableRow, 0, len(combined)),
	}
	for i, row := range combined {
		rank := i + 1
		if i > 0 && levelOnEverything(combined[i-1], row) {
			rank = snapshot.Rows[i-1].Rank
		}
		snapshot.Rows = append(snapshot.Rows, entity.LeagueTableRow{
			Rank:           rank,
			TeamID:         row.teamID,
			TeamName:       teamNames[row.teamID],
			Played:         row.played,
			Wins:           row.wins,
			Draws:          row.draws,
			Losses:         row.losses,
			GoalsFor:       row.goalsFor,
			GoalsAgainst:   row.goalsAgainst,
			GoalDifference: row.goalDifference(),
			Points:         row.points,
		})
	}
	return snapshot
}

func levelOnEverything(a, b combinedRow) bool {
	return a.points == b.points &&
		a.goalDifference() == b.goalDifference() &&
		a.goalsFor == b.goalsFor &&
		a.h2hPoints[b.teamID] == b.h2hPoints[a.teamID] &&
		a.h2hAwayGoals[b.teamID] == b.h2hAwayGoals[a.teamID]
}

// ensureRow materializes a zeroed row for the team if none exists and
// returns a copy; callers mutating the copy write it back into cum.
func ensureRow(cum map[string]map[string]entity.TeamPointsRow, groupID, teamID string) *entity.TeamPointsRow {
	if cum[groupID] == nil {
		cum[groupID] = make(map[string]entity.TeamPointsRow)
	}
	row, ok := cum[groupID][teamID]
	if !ok {
		cum[groupID][teamID] = row
	}
	return &row
}

func cloneCum(src map[string]map[string]entity.TeamPointsRow) map[string]map[string]entity.TeamPointsRow {
	out := make(map[string]map[string]entity.TeamPointsRow, len(src))
	for groupID, rows := range src {
		out[groupID] = make(map[string]entity.TeamPointsRow, len(rows))
		for teamID, row := range rows {
			out[groupID][teamID] = entity.TeamPointsRow{
				Home: cloneHalf(row.Home),
				Away: cloneHalf(row.Away),
			}
		}
	}
	return out
}

func cloneHalf(h entity.HomeAwayPoints) entity.HomeAwayPoints {
	cp := h
	cp.PointsAgainst = cloneIntMap(h.PointsAgainst)
	cp.GoalsScoredAgainst = cloneIntMap(h.GoalsScoredAgainst)
	return cp
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
