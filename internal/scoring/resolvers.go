package scoring

import (
	"cmp"
	"slices"

	"bolao-bot/internal/model"
)

const (
	// EliminationFromGame is the game number from which a loss eliminates
	// a Brazilian team (the group stage is three games).
	EliminationFromGame = 4

	// ChampionGames is the number of games the tournament winner plays.
	ChampionGames = 7
)

// SurvivorProgress is a candidate team's running state in the
// Brazilian-survivor fold.
type SurvivorProgress struct {
	TeamID         int64 `json:"team_id"`
	GamesPlayed    int   `json:"games_played"`
	Eliminated     bool  `json:"eliminated"`
	GoalDifference int   `json:"goal_difference"`
}

// ChampionProgress is a candidate team's running state in the champion fold.
type ChampionProgress struct {
	TeamID      int64 `json:"team_id"`
	GamesPlayed int   `json:"games_played"`
	LastGameWin bool  `json:"last_game_win"`
}

// chronological returns the finalized matches ordered by kickoff time,
// ties broken by match ID.
func chronological(matches []model.Match) []model.Match {
	out := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Finalized() {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Match) int {
		if c := a.KickoffTime.Compare(b.KickoffTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// side is one team's view of a finalized match.
type side struct {
	teamID   int64
	own      int
	opponent int
}

func sides(m model.Match) [2]side {
	return [2]side{
		{teamID: m.HomeTeamID, own: *m.HomeScore, opponent: *m.AwayScore},
		{teamID: m.AwayTeamID, own: *m.AwayScore, opponent: *m.HomeScore},
	}
}

// SurvivorStandings folds the finalized matches, in kickoff order, over
// every team referenced by a survivor bet. The result is ordered by team ID.
func SurvivorStandings(bets []model.SurvivorBet, matches []model.Match) []SurvivorProgress {
	progress := make(map[int64]*SurvivorProgress)
	for _, b := range bets {
		if _, ok := progress[b.TeamID]; !ok {
			progress[b.TeamID] = &SurvivorProgress{TeamID: b.TeamID}
		}
	}
	if len(progress) == 0 {
		return nil
	}

	for _, m := range chronological(matches) {
		for _, sd := range sides(m) {
			p, ok := progress[sd.teamID]
			if !ok {
				continue
			}
			p.GamesPlayed++
			goalDiff := sd.own - sd.opponent
			p.GoalDifference += goalDiff
			// Any loss from the fourth game on ends the run.
			if p.GamesPlayed >= EliminationFromGame && goalDiff < 0 {
				p.Eliminated = true
			}
		}
	}

	return sortedProgress(progress, func(p *SurvivorProgress) int64 { return p.TeamID })
}

// ResolveBrazilianSurvivor returns the bet-upon Brazilian team that is the
// only one not eliminated. ok is false while zero or several candidates
// are still alive.
func ResolveBrazilianSurvivor(bets []model.SurvivorBet, matches []model.Match) (teamID int64, ok bool) {
	var alive []int64
	for _, p := range SurvivorStandings(bets, matches) {
		if !p.Eliminated {
			alive = append(alive, p.TeamID)
		}
	}
	if len(alive) != 1 {
		return 0, false
	}
	return alive[0], true
}

// ChampionStandings folds the finalized matches, in kickoff order, over
// every team referenced by a champion bet. The result is ordered by team ID.
func ChampionStandings(bets []model.ChampionBet, matches []model.Match) []ChampionProgress {
	progress := make(map[int64]*ChampionProgress)
	for _, b := range bets {
		if _, ok := progress[b.TeamID]; !ok {
			progress[b.TeamID] = &ChampionProgress{TeamID: b.TeamID}
		}
	}
	if len(progress) == 0 {
		return nil
	}

	for _, m := range chronological(matches) {
		for _, sd := range sides(m) {
			p, ok := progress[sd.teamID]
			if !ok {
				continue
			}
			p.GamesPlayed++
			if p.GamesPlayed == ChampionGames {
				p.LastGameWin = sd.own > sd.opponent
			}
		}
	}

	return sortedProgress(progress, func(p *ChampionProgress) int64 { return p.TeamID })
}

// ResolveChampion returns the bet-upon team that played exactly seven
// games and won the seventh. Should the data ever yield more than one such
// team, the one with the highest ID is returned.
func ResolveChampion(bets []model.ChampionBet, matches []model.Match) (teamID int64, ok bool) {
	for _, p := range ChampionStandings(bets, matches) {
		if p.GamesPlayed == ChampionGames && p.LastGameWin {
			teamID, ok = p.TeamID, true
		}
	}
	return teamID, ok
}

func sortedProgress[T any](m map[int64]*T, key func(*T) int64) []T {
	out := make([]T, 0, len(m))
	for _, p := range m {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(key(&a), key(&b)) })
	return out
}
