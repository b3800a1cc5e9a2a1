package service

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"bolao-bot/internal/model"
)

// TestSubmitGuessLastWriteWinsProperty checks that any sequence of
// submissions leaves at most one guess per user and match, holding the
// last accepted values.
func TestSubmitGuessLastWriteWinsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		ctx := context.Background()

		for id := int64(1); id <= 3; id++ {
			h.profile(t, id, "user")
		}
		home := h.team(t, "Casa", true)
		away := h.team(t, "Fora", false)
		var matches []model.Match
		for i := range 3 {
			offset := rapid.IntRange(-120, 240).Draw(rt, "kickoffOffsetMinutes")
			m := h.match(t, home, away, testNow.Add(time.Duration(offset)*time.Minute+time.Duration(i)*time.Second))
			matches = append(matches, m)
		}

		last := make(map[[2]int64][2]int)
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for range steps {
			userID := rapid.Int64Range(1, 3).Draw(rt, "userID")
			m := rapid.SampledFrom(matches).Draw(rt, "match")
			hg := rapid.IntRange(0, 5).Draw(rt, "home")
			ag := rapid.IntRange(0, 5).Draw(rt, "away")

			_, err := h.svc.SubmitGuess(ctx, userID, m.ID, hg, ag)
			open := h.svc.Gate().IsOpen(m.KickoffTime, testNow)
			if open != (err == nil) {
				rt.Fatalf("match open=%v but submit err=%v", open, err)
			}
			if err == nil {
				last[[2]int64{userID, m.ID}] = [2]int{hg, ag}
			}
		}

		stored, err := h.db.stores().Guesses.List(ctx, nil)
		if err != nil {
			rt.Fatal(err)
		}
		if len(stored) != len(last) {
			rt.Fatalf("expected %d guesses, got %d", len(last), len(stored))
		}
		for _, g := range stored {
			want := last[[2]int64{g.UserID, g.MatchID}]
			if g.HomeGuess != want[0] || g.AwayGuess != want[1] {
				rt.Fatalf("guess %d/%d = %d-%d, want %d-%d", g.UserID, g.MatchID, g.HomeGuess, g.AwayGuess, want[0], want[1])
			}
		}
	})
}
