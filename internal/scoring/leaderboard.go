package scoring

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"bolao-bot/internal/model"
)

// Point values.
const (
	ExactHitPoints      = 3
	WinnerHitPoints     = 1
	SurvivorBonusPoints = 15
	ChampionBonusPoints = 15
)

// Bonuses holds the resolved bonus teams; a nil ID means not yet resolved.
type Bonuses struct {
	SurvivorTeamID *int64 `json:"survivor_team_id"`
	ChampionTeamID *int64 `json:"champion_team_id"`
}

// ResolveBonuses runs both bonus resolvers over the same snapshot.
func ResolveBonuses(snap model.Snapshot) Bonuses {
	var b Bonuses
	if id, ok := ResolveBrazilianSurvivor(snap.SurvivorBets, snap.Matches); ok {
		b.SurvivorTeamID = &id
	}
	if id, ok := ResolveChampion(snap.ChampionBets, snap.Matches); ok {
		b.ChampionTeamID = &id
	}
	return b
}

// Entry is one ranked row of the leaderboard.
type Entry struct {
	Profile        model.Profile `json:"profile"`
	ExactScoreHits int           `json:"exact_score_hits"`
	WinnerHits     int           `json:"winner_hits"`
	SurvivorBonus  int           `json:"survivor_bonus"`
	ChampionBonus  int           `json:"champion_bonus"`
	TotalPoints    int           `json:"total_points"`
	Rank           int           `json:"rank"`
}

// Aggregate builds one entry per profile and ranks them.
func Aggregate(
	profiles []model.Profile,
	scores map[int64]Score,
	bonuses Bonuses,
	survivorBets []model.SurvivorBet,
	championBets []model.ChampionBet,
) []Entry {
	survivorHit := bonusWinners(bonuses.SurvivorTeamID, survivorBets, func(b model.SurvivorBet) (int64, int64) {
		return b.UserID, b.TeamID
	})
	championHit := bonusWinners(bonuses.ChampionTeamID, championBets, func(b model.ChampionBet) (int64, int64) {
		return b.UserID, b.TeamID
	})

	entries := make([]Entry, 0, len(profiles))
	for _, p := range profiles {
		s := scores[p.ID]
		e := Entry{
			Profile:        p,
			ExactScoreHits: s.ExactScoreHits,
			WinnerHits:     s.WinnerHits,
		}
		if survivorHit[p.ID] {
			e.SurvivorBonus = SurvivorBonusPoints
		}
		if championHit[p.ID] {
			e.ChampionBonus = ChampionBonusPoints
		}
		e.TotalPoints = s.Points() + e.SurvivorBonus + e.ChampionBonus
		entries = append(entries, e)
	}

	Rank(entries)
	return entries
}

func bonusWinners[B any](teamID *int64, bets []B, key func(B) (userID, teamID int64)) map[int64]bool {
	winners := make(map[int64]bool)
	if teamID == nil {
		return winners
	}
	for _, b := range bets {
		if user, team := key(b); team == *teamID {
			winners[user] = true
		}
	}
	return winners
}

// Rank sorts entries by total points descending, then by name in
// pt-BR collation order, then by profile ID, and assigns ranks. Tied
// totals share a rank; the next distinct total gets the previous rank
// plus one.
func Rank(entries []Entry) {
	col := collate.New(language.BrazilianPortuguese)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		if c := col.CompareString(a.Profile.Name, b.Profile.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Profile.ID, b.Profile.ID)
	})

	for i := range entries {
		switch {
		case i == 0:
			entries[i].Rank = 1
		case entries[i].TotalPoints == entries[i-1].TotalPoints:
			entries[i].Rank = entries[i-1].Rank
		default:
			entries[i].Rank = entries[i-1].Rank + 1
		}
	}
}

// ComputeLeaderboard runs the whole pipeline over a snapshot.
func ComputeLeaderboard(snap model.Snapshot) ([]Entry, Bonuses, error) {
	index, err := IndexMatches(snap.Matches)
	if err != nil {
		return nil, Bonuses{}, err
	}
	scores, err := EvaluateAll(snap.Guesses, index)
	if err != nil {
		return nil, Bonuses{}, err
	}
	bonuses := ResolveBonuses(snap)
	return Aggregate(snap.Profiles, scores, bonuses, snap.SurvivorBets, snap.ChampionBets), bonuses, nil
}
