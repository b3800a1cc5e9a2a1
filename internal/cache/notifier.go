package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Change kinds published after a successful write.
const (
	ChangeGuess    = "guess"
	ChangeSurvivor = "survivor_bet"
	ChangeChampion = "champion_bet"
	ChangeResult   = "result"
	ChangeProfile  = "profile"
	ChangeTeam     = "team"
	ChangeMatch    = "match"
)

// ChangeEvent announces that data feeding the leaderboard changed.
type ChangeEvent struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	UserID  int64     `json:"user_id,omitempty"`
	MatchID int64     `json:"match_id,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier publishes and consumes change events on one redis channel.
type Notifier struct {
	client  *redis.Client
	channel string
}

// NewNotifier creates a Notifier bound to channel.
func NewNotifier(client *redis.Client, channel string) *Notifier {
	return &Notifier{client: client, channel: channel}
}

// Publish sends ev. A missing ID or timestamp is filled in.
func (n *Notifier) Publish(ctx context.Context, ev ChangeEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, b).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription, then calls handle for every event
// from a background goroutine until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, handle func(context.Context, ChangeEvent)) error {
	sub := n.client.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Str("channel", n.channel).Msg("Dropping malformed change event")
					continue
				}
				handle(ctx, ev)
			}
		}
	}()

	return nil
}
