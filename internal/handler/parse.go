package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/br"
	"github.com/olebedev/when/rules/common"

	"bolao-bot/internal/model"
)

var (
	errBadScore   = errors.New("❌ Placar inválido. Use números, por exemplo 2x1")
	errBadMatchID = errors.New("❌ ID do jogo inválido. Veja os IDs em /jogos")
)

// parseScoreArgs reads "<id> <casa>x<fora>" or "<id> <casa> <fora>".
func parseScoreArgs(args []string) (matchID int64, home, away int, err error) {
	if len(args) < 2 || len(args) > 3 {
		return 0, 0, 0, errUsage
	}
	matchID, err = strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || matchID <= 0 {
		return 0, 0, 0, errBadMatchID
	}
	if len(args) == 3 {
		home, away, err = parseScorePair(args[1], args[2])
	} else {
		home, away, err = parseScore(args[1])
	}
	return matchID, home, away, err
}

var errUsage = errors.New("usage")

// parseScore accepts "2x1", "2-1" and "2:1".
func parseScore(s string) (home, away int, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, sep := range []string{"x", "-", ":"} {
		if h, a, ok := strings.Cut(s, sep); ok {
			return parseScorePair(h, a)
		}
	}
	return 0, 0, errBadScore
}

func parseScorePair(h, a string) (home, away int, err error) {
	home, err = strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, errBadScore
	}
	away, err = strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, errBadScore
	}
	if home < 0 || away < 0 {
		return 0, 0, errBadScore
	}
	return home, away, nil
}

// splitPayload splits a ';'-separated command payload into n trimmed fields.
func splitPayload(payload string, n int) ([]string, bool) {
	parts := strings.Split(payload, ";")
	if len(parts) != n {
		return nil, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, false
		}
	}
	return parts, true
}

// parseTeamPayload reads "nome;país;sim|nao".
func parseTeamPayload(payload string) (model.Team, error) {
	parts, ok := splitPayload(payload, 3)
	if !ok {
		return model.Team{}, errUsage
	}
	brazilian, err := parseYesNo(parts[2])
	if err != nil {
		return model.Team{}, err
	}
	country := parts[1]
	return model.Team{Name: parts[0], Country: &country, IsBrazilian: brazilian}, nil
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "sim", "s", "yes", "true", "1":
		return true, nil
	case "nao", "não", "n", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("❌ Valor inválido %q: use sim ou nao", s)
}

// kickoffLayouts are tried in order before natural-language parsing.
var kickoffLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006 15h04",
	"2006-01-02 15:04",
}

var kickoffParser = newKickoffParser()

func newKickoffParser() *when.Parser {
	w := when.New(nil)
	w.Add(br.All...)
	w.Add(common.All...)
	return w
}

// parseKickoff reads an RFC 3339 timestamp, a dd/mm/yyyy hh:mm date in loc,
// or a Portuguese expression such as "amanhã às 16h" relative to now.
// Kickoffs that are not in the future are rejected.
func parseKickoff(input string, loc *time.Location, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	kickoff, err := parseKickoffTime(input, loc, now)
	if err != nil {
		return time.Time{}, err
	}
	if !kickoff.After(now) {
		return time.Time{}, fmt.Errorf("❌ A data %s já passou", kickoff.In(loc).Format(displayLayout))
	}
	return kickoff, nil
}

func parseKickoffTime(input string, loc *time.Location, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}
	for _, layout := range kickoffLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, nil
		}
	}
	r, err := kickoffParser.Parse(input, now.In(loc))
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("❌ Não entendi a data %q. Use dd/mm/aaaa hh:mm", input)
	}
	return r.Time, nil
}
