package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
	"github.com/philios33/predictor2-backend-sub000/internal/hashing"
	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
)

// MaxPhaseGap is the largest kickoff gap between two matches of the same
// phase. Matches further apart start a new phase, so a phase models a
// contiguous window of near-simultaneous fixtures such as a game week.
const MaxPhaseGap = 33 * time.Hour

// RebuildTournamentStructure partitions a tournament's matches into
// ordered phases and stores the per-phase structures, the match-to-phase
// reverse index and the structure summary.
//
// Sources hashed: the tournament record, the full team set and the full
// match set. Scores live in separate documents and are intentionally not a
// source, so score changes never force a structure rebuild.
//
// After a real rebuild, enqueues a league table rebuild for every phase
// that has started by now.
func (b *Builder) RebuildTournamentStructure(ctx context.Context, tournamentID string, now time.Time) (Outcome, error) {
	tournament, err := b.recs.GetTournament(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}
	if tournament == nil {
		slog.Warn("structure rebuild skipped: unknown tournament", "tournament", tournamentID)
		return notReady("tournament does not exist"), nil
	}

	teams, err := b.recs.ListTeams(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}
	matches, err := b.recs.ListMatches(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}

	fresh := entity.SourceHashes{}
	if fresh[srcTournament], err = hashing.Hash(tournament); err != nil {
		return Outcome{}, err
	}
	if fresh[srcTeams], err = hashing.Hash(teams); err != nil {
		return Outcome{}, err
	}
	if fresh[srcMatches], err = hashing.Hash(matches); err != nil {
		return Outcome{}, err
	}

	current, err := b.recs.GetTournamentStructure(ctx, tournamentID)
	if err != nil {
		return Outcome{}, err
	}
	var currentHashes entity.SourceHashes
	if current != nil {
		currentHashes = current.SourceHashes
	}
	if !ShouldRebuild(currentHashes, fresh) {
		slog.Debug("structure unchanged, skipping", "tournament", tournamentID)
		return unchanged(), nil
	}

	teamsByID := make(map[string]entity.TournamentTeam, len(teams))
	for _, team := range teams {
		teamsByID[team.TeamID] = team
	}

	// Deleted fixtures keep their documents but take no part in phases.
	var scheduled []entity.TournamentMatch
	for _, match := range matches {
		if match.Status != entity.MatchDeleted {
			scheduled = append(scheduled, match)
		}
	}

	phases := partitionPhases(scheduled)

	stageStartedIn := make(map[string]int)
	phaseBeforeStageStarts := make(map[string]int)

	for phaseID, phaseMatches := range phases {
		earliest := phaseMatches[0].ScheduledKickoff
		last := phaseMatches[len(phaseMatches)-1].ScheduledKickoff

		stageSet := make(map[string]bool)
		var startingStages []string
		for _, match := range phaseMatches {
			stageSet[match.StageID] = true
			if _, seen := stageStartedIn[match.StageID]; !seen {
				stageStartedIn[match.StageID] = phaseID
				phaseBeforeStageStarts[match.StageID] = phaseID - 1
				startingStages = append(startingStages, match.StageID)
			}
		}
		includedStages := make([]string, 0, len(stageSet))
		for stage := range stageSet {
			includedStages = append(includedStages, stage)
		}
		sort.Strings(includedStages)
		sort.Strings(startingStages)

		withTeams := make([]entity.TournamentMatchWithTeams, 0, len(phaseMatches))
		for _, match := range phaseMatches {
			withTeams = append(withTeams, entity.TournamentMatchWithTeams{
				Match:    match,
				HomeTeam: teamsByID[match.HomeTeamID],
				AwayTeam: teamsByID[match.AwayTeamID],
			})
		}

		if err := b.recs.PutPhaseStructure(ctx, entity.TournamentPhaseStructure{
			TournamentID:         tournamentID,
			PhaseID:              phaseID,
			EarliestMatchKickoff: earliest,
			LastMatchKickoff:     last,
			IncludedStages:       includedStages,
			StartingStages:       startingStages,
			Matches:              withTeams,
		}); err != nil {
			return Outcome{}, err
		}

		for _, match := range phaseMatches {
			if err := b.recs.PutMatchPhase(ctx, entity.TournamentMatchPhase{
				TournamentID: tournamentID,
				MatchID:      match.MatchID,
				PhaseID:      phaseID,
			}); err != nil {
				return Outcome{}, err
			}
		}
	}

	groupTeams := make(map[string]map[string]entity.TournamentTeam)
	for _, team := range teams {
		for _, groupID := range team.GroupIDs {
			if groupTeams[groupID] == nil {
				groupTeams[groupID] = make(map[string]entity.TournamentTeam)
			}
			groupTeams[groupID][team.TeamID] = team
		}
	}

	structure := entity.TournamentStructure{
		TournamentID:           tournamentID,
		LastPhaseID:            len(phases) - 1,
		PhaseBeforeStageStarts: phaseBeforeStageStarts,
		GroupTeams:             groupTeams,
		SourceHashes:           fresh,
	}
	if err := b.recs.PutTournamentStructure(ctx, structure); err != nil {
		return Outcome{}, err
	}

	slog.Info("tournament structure rebuilt",
		"tournament", tournamentID,
		"phases", len(phases),
		"matches", len(scheduled),
	)

	active, err := ActivePhaseIDs(ctx, b.recs, tournamentID, 0, now)
	if err != nil {
		return Outcome{}, err
	}
	for _, phaseID := range active {
		if err := b.bus.Enqueue(ctx, jobs.TypeRebuildTournamentTablePostPhase, jobs.TournamentTableMeta{
			TournamentID: tournamentID,
			PhaseID:      phaseID,
		}); err != nil {
			return Outcome{}, err
		}
	}

	return done(), nil
}

// partitionPhases greedily partitions matches into ordered phases.
//
// Matches are sorted ascending by kickoff (match id breaks exact ties for
// determinism) and placed one by one into the open phase. A new phase
// starts when the gap from the latest match already placed exceeds
// MaxPhaseGap, or when either team of the incoming match has already
// appeared in the open phase. This guarantees no team plays twice within a
// phase and that phase ids increase strictly with time.
func partitionPhases(matches []entity.TournamentMatch) [][]entity.TournamentMatch {
	if len(matches) == 0 {
		return nil
	}

	sorted := make([]entity.TournamentMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ScheduledKickoff.Equal(sorted[j].ScheduledKickoff) {
			return sorted[i].ScheduledKickoff.Before(sorted[j].ScheduledKickoff)
		}
		return sorted[i].MatchID < sorted[j].MatchID
	})

	var phases [][]entity.TournamentMatch
	var open []entity.TournamentMatch
	teamsInOpen := make(map[string]bool)

	closePhase := func() {
		if len(open) == 0 {
			panic(fmt.Sprintf("phase partition produced an empty phase at index %d", len(phases)))
		}
		phases = append(phases, open)
		open = nil
		teamsInOpen = make(map[string]bool)
	}

	for _, match := range sorted {
		if len(open) > 0 {
			latest := open[len(open)-1].ScheduledKickoff
			gapExceeded := match.ScheduledKickoff.Sub(latest) > MaxPhaseGap
			teamRepeats := teamsInOpen[match.HomeTeamID] || teamsInOpen[match.AwayTeamID]
			if gapExceeded || teamRepeats {
				closePhase()
			}
		}
		open = append(open, match)
		teamsInOpen[match.HomeTeamID] = true
		teamsInOpen[match.AwayTeamID] = true
	}
	closePhase()

	return phases
}
