package handler

import (
	"fmt"
	"strings"
	"time"

	"bolao-bot/internal/model"
	"bolao-bot/internal/scoring"
	"bolao-bot/internal/service"
)

const displayLayout = "02/01 15:04"

func formatMatchLine(m service.MatchView, loc *time.Location) string {
	line := fmt.Sprintf("#%d %s x %s · %s", m.ID, m.HomeTeam.Name, m.AwayTeam.Name, m.KickoffTime.In(loc).Format(displayLayout))
	switch {
	case m.Finalized():
		return line + fmt.Sprintf(" · 🏁 %d x %d", *m.HomeScore, *m.AwayScore)
	case m.Open:
		return line + " · ✅ aberto até " + m.ClosesAt.In(loc).Format("15:04")
	default:
		return line + " · 🔒 fechado"
	}
}

func formatMatches(matches []service.MatchView, loc *time.Location) string {
	if len(matches) == 0 {
		return "📅 Nenhum jogo cadastrado."
	}
	var sb strings.Builder
	sb.WriteString("📅 Jogos\n\n")
	for _, m := range matches {
		sb.WriteString(formatMatchLine(m, loc))
		sb.WriteByte('\n')
	}
	sb.WriteString("\nPalpite: /palpite <id> <casa>x<fora>")
	return sb.String()
}

func formatLeaderboard(lb *service.Leaderboard, limit int) string {
	if len(lb.Entries) == 0 {
		return "🏆 Ninguém pontuou ainda."
	}
	var sb strings.Builder
	sb.WriteString("🏆 Classificação\n\n")
	for i, e := range lb.Entries {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&sb, "… e mais %d participantes\n", len(lb.Entries)-limit)
			break
		}
		fmt.Fprintf(&sb, "%s %s · %d pts (%d exatos, %d vencedores)%s\n",
			rankLabel(e.Rank), e.Profile.Name, e.TotalPoints, e.ExactScoreHits, e.WinnerHits, bonusMarks(e))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func rankLabel(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank)
}

func bonusMarks(e scoring.Entry) string {
	var marks string
	if e.SurvivorBonus > 0 {
		marks += " 🇧🇷"
	}
	if e.ChampionBonus > 0 {
		marks += " 🏆"
	}
	return marks
}

func formatEntry(e scoring.Entry) string {
	return fmt.Sprintf(
		"📊 Sua pontuação\n\n"+
			"🏅 Posição: %d\n"+
			"🎯 Placares exatos: %d (×%d)\n"+
			"✔️ Vencedores: %d (×%d)\n"+
			"🇧🇷 Bônus brasileiro: %d\n"+
			"🏆 Bônus campeão: %d\n"+
			"💯 Total: %d pontos",
		e.Rank,
		e.ExactScoreHits, scoring.ExactHitPoints,
		e.WinnerHits, scoring.WinnerHitPoints,
		e.SurvivorBonus, e.ChampionBonus, e.TotalPoints,
	)
}

func formatGuesses(guesses []model.ScoreGuess, matches map[int64]service.MatchView) string {
	if len(guesses) == 0 {
		return "📝 Você ainda não fez palpites. Veja os jogos em /jogos"
	}
	var sb strings.Builder
	sb.WriteString("📝 Seus palpites\n\n")
	for _, g := range guesses {
		m, ok := matches[g.MatchID]
		if !ok {
			fmt.Fprintf(&sb, "#%d · %d x %d\n", g.MatchID, g.HomeGuess, g.AwayGuess)
			continue
		}
		fmt.Fprintf(&sb, "#%d %s %d x %d %s%s\n",
			g.MatchID, m.HomeTeam.Name, g.HomeGuess, g.AwayGuess, m.AwayTeam.Name, hitMark(g, m.Match))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func hitMark(g model.ScoreGuess, m model.Match) string {
	if !m.Finalized() {
		return ""
	}
	switch scoring.Classify(g.HomeGuess, g.AwayGuess, *m.HomeScore, *m.AwayScore) {
	case scoring.ExactHit:
		return " 🎯"
	case scoring.WinnerHit:
		return " ✔️"
	}
	return " ❌"
}

func formatMatchGuesses(m service.MatchView, guesses []model.GuessWithProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👀 Palpites para %s x %s\n\n", m.HomeTeam.Name, m.AwayTeam.Name)
	if len(guesses) == 0 {
		sb.WriteString("Ninguém palpitou neste jogo.")
		return sb.String()
	}
	for _, g := range guesses {
		fmt.Fprintf(&sb, "%s: %d x %d%s\n", g.Name, g.HomeGuess, g.AwayGuess, hitMark(g.ScoreGuess, m.Match))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatTeams(title string, teams []model.Team, selected *int64) string {
	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for _, t := range teams {
		mark := ""
		if selected != nil && *selected == t.ID {
			mark = " ⭐"
		}
		fmt.Fprintf(&sb, "%d · %s%s\n", t.ID, t.Name, mark)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func teamName(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("time %d", id)
}

func formatBonusStatus(st *service.BonusStatus, names map[int64]string) string {
	var sb strings.Builder
	sb.WriteString("🇧🇷 Brasileiro sobrevivente\n")
	if st.SurvivorTeamID != nil {
		fmt.Fprintf(&sb, "Definido: %s\n", teamName(names, *st.SurvivorTeamID))
	}
	for _, p := range st.Survivor {
		status := "vivo"
		if p.Eliminated {
			status = "eliminado"
		}
		fmt.Fprintf(&sb, "• %s · %d jogos · %s\n", teamName(names, p.TeamID), p.GamesPlayed, status)
	}
	sb.WriteString("\n🏆 Campeão\n")
	if st.ChampionTeamID != nil {
		fmt.Fprintf(&sb, "Definido: %s\n", teamName(names, *st.ChampionTeamID))
	}
	for _, p := range st.Champion {
		fmt.Fprintf(&sb, "• %s · %d/%d jogos\n", teamName(names, p.TeamID), p.GamesPlayed, scoring.ChampionGames)
	}
	return strings.TrimRight(sb.String(), "\n")
}
