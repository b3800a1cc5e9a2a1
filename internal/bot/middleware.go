package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/config"
	"bolao-bot/internal/handler"
	"bolao-bot/internal/model"
)

// knownUsers tracks users seen in a whitelisted group.
// They may also talk to the bot in private chat.
type knownUsers struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func newKnownUsers() *knownUsers {
	return &knownUsers{ids: make(map[int64]struct{})}
}

func (k *knownUsers) add(userID int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ids[userID] = struct{}{}
}

func (k *knownUsers) has(userID int64) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.ids[userID]
	return ok
}

// WhitelistMiddleware ignores updates from chats outside the whitelist.
// Private chats are accepted from users already seen in a whitelisted group.
func WhitelistMiddleware(cfg *config.Config, known *knownUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || known.has(sender.ID) {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not seen in a whitelisted group")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			known.add(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from users outside admin.ids.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Permissão negada: comando restrito aos administradores.")
			}

			return next(c)
		}
	}
}

// ProfileEnsurer creates or refreshes a participant profile.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, userID int64, name string, avatarURL *string) (*model.Profile, error)
}

// ProfileMiddleware keeps the sender's profile name in sync with Telegram.
// Failures are logged; the command still runs and reports its own errors.
func ProfileMiddleware(profiles ProfileEnsurer) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err := profiles.EnsureProfile(ctx, sender.ID, handler.DisplayName(sender), nil)
			cancel()
			if err != nil {
				log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to sync profile")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming update at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from handler panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Erro interno. Tente novamente em instantes.")
				}
			}()
			return next(c)
		}
	}
}
