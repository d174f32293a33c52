package rebuild

import (
	"context"
	"log/slog"
	"sort"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/hashing"
)

// Prediction scoring base points. The banker bonus is base times
// (multiplier - 1), so a losing banker bet costs proportionally more.
const (
	pointsCorrectScore  = 7
	pointsCorrectGD     = 4
	pointsCorrectResult = 2
	pointsIncorrect     = -1
	pointsMissed        = -1
)

// Banker multipliers. The reduced multiplier applies when a match involves
// a team ranked top-4 of its group in the snapshot taken before the
// match's stage started, and also when no such snapshot exists yet.
const (
	bankerMultiplierFull    = 3
	bankerMultiplierReduced = 2
)

// topRankCutoff is the rank at or above which a team counts as
// already-strong for banker multiplier purposes.
const topRankCutoff = 4

// RebuildCompetitionTablePostPhase rescores one competition's standings
// for one tournament phase: every competing player's predictions against
// the phase's finalized results, accumulated onto the previous phase's
// totals and ranked.
//
// Sources hashed: the tournament structure, this phase's structure, the
// previous and current tournament phase tables, the previous competition
// phase table, all roster predictions for this phase's matches, the
// competition record and the roster itself.
func (b *Builder) RebuildCompetitionTablePostPhase(ctx context.Context, competitionID string, phaseID int) (Outcome, error) {
	competition, err := b.recs.GetCompetition(ctx, competitionID)
	if err != nil {
		return Outcome{}, err
	}
	if competition == nil {
		slog.Warn("standings rebuild skipped: unknown competition", "competition", competitionID)
		return notReady("competition does not exist"), nil
	}
	tournamentID := competition.TournamentID

	structure, err := b.recs.GetTournamentStructure(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}
	if structure == nil {
		slog.Warn("standings rebuild skipped: tournament structure absent",
			"competition", competitionID, "tournament", tournamentID, "phase", phaseID)
		return notReady("tournament structure absent"), nil
	}

	phase, err := b.recs.GetPhaseStructure(ctx, tournamentID, phaseID)
	if err != nil {
		return Outcome{}, err
	}
	if phase == nil {
		slog.Warn("standings rebuild skipped: phase structure absent",
			"competition", competitionID, "tournament", tournamentID, "phase", phaseID)
		return notReady("phase structure absent"), nil
	}

	tables, err := b.recs.GetTournamentTables(ctx, tournamentID, phaseID)
	if err != nil {
		return Outcome{}, err
	}
	if tables == nil {
		slog.Warn("standings rebuild skipped: tournament phase table absent",
			"competition", competitionID, "tournament", tournamentID, "phase", phaseID)
		return notReady("tournament phase table absent"), nil
	}

	var previousTables *entity.TournamentTablesPostPhase
	var previousStandings *entity.CompetitionTablesPostPhase
	if phaseID > 0 {
		previousTables, err = b.recs.GetTournamentTables(ctx, tournamentID, phaseID-1)
		if err != nil {
			return Outcome{}, err
		}
		previousStandings, err = b.recs.GetCompetitionTables(ctx, competitionID, phaseID-1)
		if err != nil {
			return Outcome{}, err
		}
		if previousStandings == nil {
			slog.Warn("standings rebuild skipped: previous phase standings absent",
				"competition", competitionID, "phase", phaseID)
			return notReady("previous phase standings absent"), nil
		}
	}

	roster, err := b.recs.GetCompetitionPlayers(ctx, competitionID)
	if err != nil {
		return Outcome{}, err
	}
	if roster == nil {
		slog.Warn("standings rebuild skipped: roster absent", "competition", competitionID)
		return notReady("roster absent"), nil
	}

	playerIDs := make([]string, 0, len(roster.Players))
	for playerID := range roster.Players {
		playerIDs = append(playerIDs, playerID)
	}
	sort.Strings(playerIDs)

	predictions := make(map[string]map[string]*entity.PredictionValue, len(phase.Matches))
	for _, m := range phase.Matches {
		matchID := m.Match.MatchID
		predictions[matchID] = make(map[string]*entity.PredictionValue, len(playerIDs))
		for _, playerID := range playerIDs {
			stored, err := b.recs.GetPrediction(ctx, tournamentID, matchID, playerID)
			if err != nil {
				return Outcome{}, err
			}
			if stored == nil {
				predictions[matchID][playerID] = nil
			} else {
				predictions[matchID][playerID] = stored.Prediction
			}
		}
	}

	fresh := entity.SourceHashes{}
	if fresh[srcStructure], err = hashing.Hash(structure); err != nil {
		return Outcome{}, err
	}
	if fresh[srcPhaseStructure], err = hashing.Hash(phase); err != nil {
		return Outcome{}, err
	}
	if previousTables != nil {
		if fresh[srcPreviousTables], err = hashing.Hash(previousTables); err != nil {
			return Outcome{}, err
		}
	}
	if fresh[srcTournamentTables], err = hashing.Hash(tables); err != nil {
		return Outcome{}, err
	}
	if previousStandings != nil {
		if fresh[srcPreviousCompetitionTables], err = hashing.Hash(previousStandings); err != nil {
			return Outcome{}, err
		}
	}
	if fresh[srcPredictions], err = hashing.Hash(predictions); err != nil {
		return Outcome{}, err
	}
	if fresh[srcCompetition], err = hashing.Hash(competition); err != nil {
		return Outcome{}, err
	}
	if fresh[srcRoster], err = hashing.Hash(roster); err != nil {
		return Outcome{}, err
	}

	current, err := b.recs.GetCompetitionTables(ctx, competitionID, phaseID)
	if err != nil {
		return Outcome{}, err
	}
	var currentHashes entity.SourceHashes
	if current != nil {
		currentHashes = current.SourceHashes
	}
	if !ShouldRebuild(currentHashes, fresh) {
		slog.Debug("standings unchanged, skipping",
			"competition", competitionID, "phase", phaseID)
		return unchanged(), nil
	}

	totals := make(map[string]int, len(playerIDs))
	for _, playerID := range playerIDs {
		member := roster.Players[playerID]
		if previousStandings != nil {
			if prev, ok := previousStandings.PlayerTotalPoints[playerID]; ok {
				totals[playerID] = prev
				continue
			}
		}
		totals[playerID] = member.InitialPoints
	}

	matchPoints := make(map[string]map[string]entity.PlayerMatchPoints, len(phase.Matches))
	for _, m := range phase.Matches {
		match := m.Match
		if match.Status != entity.MatchOn {
			continue
		}
		score := tables.MatchScores[match.MatchID]
		if score == nil || !score.IsFinalScore {
			continue
		}

		multiplier, err := b.bankerMultiplier(ctx, structure, tournamentID, match)
		if err != nil {
			return Outcome{}, err
		}

		perPlayer := make(map[string]entity.PlayerMatchPoints, len(playerIDs))
		for _, playerID := range playerIDs {
			member := roster.Players[playerID]
			if phaseID < member.InitialPhase {
				continue
			}
			points := scorePrediction(predictions[match.MatchID][playerID], *score, multiplier)
			perPlayer[playerID] = points
			totals[playerID] += points.Regular + points.BankerBonus
		}
		matchPoints[match.MatchID] = perPlayer
	}

	standings, err := b.rankPlayers(ctx, playerIDs, totals)
	if err != nil {
		return Outcome{}, err
	}

	result := entity.CompetitionTablesPostPhase{
		CompetitionID:          competitionID,
		PhaseID:                phaseID,
		MatchPlayerPredictions: predictions,
		MatchPlayerPoints:      matchPoints,
		PlayerTotalPoints:      totals,
		StandingsSnapshotAfter: standings,
		SourceHashes:           fresh,
	}
	if err := b.recs.PutCompetitionTables(ctx, result); err != nil {
		return Outcome{}, err
	}

	slog.Info("competition standings rebuilt",
		"competition", competitionID, "phase", phaseID, "players", len(playerIDs))

	return done(), nil
}

// bankerMultiplier resolves the banker multiplier for a match. The full
// multiplier applies only when a pre-stage table snapshot exists and
// neither team was top-4 of its group in it.
func (b *Builder) bankerMultiplier(ctx context.Context, structure *entity.TournamentStructure, tournamentID string, match entity.TournamentMatch) (int, error) {
	snapshotPhase, ok := structure.PhaseBeforeStageStarts[match.StageID]
	if !ok || snapshotPhase < 0 {
		return bankerMultiplierReduced, nil
	}

	snapshot, err := b.recs.GetTournamentTables(ctx, tournamentID, snapshotPhase)
	if err != nil {
		return 0, err
	}
	if snapshot == nil {
		return bankerMultiplierReduced, nil
	}

	table, ok := snapshot.LatestTables[match.GroupID]
	if !ok {
		return bankerMultiplierReduced, nil
	}
	for _, row := range table.Rows {
		if row.Rank > topRankCutoff {
			break
		}
		if row.TeamID == match.HomeTeamID || row.TeamID == match.AwayTeamID {
			return bankerMultiplierReduced, nil
		}
	}
	return bankerMultiplierFull, nil
}

// scorePrediction scores one player's prediction against a final score.
func scorePrediction(pred *entity.PredictionValue, score entity.MatchScore, multiplier int) entity.PlayerMatchPoints {
	if pred == nil {
		return entity.PlayerMatchPoints{
			Type:             entity.ResultMissed,
			Regular:          pointsMissed,
			BankerMultiplier: multiplier,
		}
	}

	var resultType entity.PredictionResultType
	var base int
	predDiff := pred.Score.Home - pred.Score.Away
	actualDiff := score.HomeGoals - score.AwayGoals

	switch {
	case pred.Score.Home == score.HomeGoals && pred.Score.Away == score.AwayGoals:
		resultType = entity.ResultCorrectScore
		base = pointsCorrectScore
	case predDiff == actualDiff:
		resultType = entity.ResultCorrectGD
		base = pointsCorrectGD
	case sign(predDiff) == sign(actualDiff):
		resultType = entity.ResultCorrectResult
		base = pointsCorrectResult
	default:
		resultType = entity.ResultIncorrect
		base = pointsIncorrect
	}

	points := entity.PlayerMatchPoints{
		Type:             resultType,
		Regular:          base,
		BankerMultiplier: multiplier,
	}
	if pred.IsBanker {
		points.BankerBonus = base * (multiplier - 1)
	}
	return points
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// rankPlayers ranks players by descending total points with competition
// ("1223") numbering: equal totals share a position and the next distinct
// total takes rank = row index + 1.
func (b *Builder) rankPlayers(ctx context.Context, playerIDs []string, totals map[string]int) ([]entity.PlayerStandingsRow, error) {
	ordered := make([]string, len(playerIDs))
	copy(ordered, playerIDs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if totals[ordered[i]] != totals[ordered[j]] {
			return totals[ordered[i]] > totals[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	rows := make([]entity.PlayerStandingsRow, 0, len(ordered))
	for i, playerID := range ordered {
		rank := i + 1
		if i > 0 && totals[playerID] == rows[i-1].Points {
			rank = rows[i-1].Rank
		}

		var name string
		player, err := b.recs.GetPlayer(ctx, playerID)
		if err != nil {
			return nil, err
		}
		if player != nil {
			name = player.Name
		}

		rows = append(rows, entity.PlayerStandingsRow{
			Rank:       rank,
			PlayerID:   playerID,
			PlayerName: name,
			Points:     totals[playerID],
		})
	}
	return rows, nil
}
