package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/session"
)

const commandTimeout = 10 * time.Second

// Session is the part of *session.Session the bot drives.
type Session interface {
	View() session.View
	Dispatch(ctx context.Context, in session.Intent) (session.View, error)
}

const helpText = `Commands:
/refresh - fetch events again
/active - toggle active-only
/hood <name> - toggle a neighborhood
/clearhoods - clear the neighborhood filter
/hoods - list neighborhoods
/place <id> - show a venue
/close - dismiss the venue`

// ListenForCommands polls for bot updates and maps commands from the
// configured chat onto session intents until ctx is done.
func (c *Client) ListenForCommands(ctx context.Context, sess Session) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				c.handleUpdate(ctx, sess, update)
			}
		}
	}()
}

func (c *Client) handleUpdate(ctx context.Context, sess Session, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat == nil || msg.Chat.ID != c.chatID {
		logger.Debug("Ignoring command from chat %v", msg.Chat)
		return
	}

	reply := c.runCommand(ctx, sess, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	if reply == "" {
		return
	}
	if err := c.send(tgbotapi.NewMessage(c.chatID, reply)); err != nil {
		logger.Warn("Failed to reply to /%s: %v", msg.Command(), err)
	}
}

// runCommand executes one command and returns the reply text.
func (c *Client) runCommand(ctx context.Context, sess Session, command, args string) string {
	switch command {
	case "hoods":
		return formatNeighborhoods(sess.View())
	case "start", "help":
		return helpText
	}

	in, ok := intentFor(command, args)
	switch {
	case !ok && command == "hood":
		return "Usage: /hood <name>"
	case !ok && command == "place":
		return "Usage: /place <id>"
	case !ok:
		return helpText
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	view, err := sess.Dispatch(ctx, in)
	if err != nil {
		logger.Warn("Command /%s failed: %v", command, err)
		return "Sorry, that did not work: " + err.Error()
	}

	switch in.Kind {
	case session.SelectMarker:
		if view.Focus == nil || view.Focus.Place.Identifier != in.Arg {
			return "No venue with id " + in.Arg + " is on the map."
		}
		// The venue pin is delivered by the surface.
		return ""
	case session.DismissDetail:
		return "Closed."
	default:
		return formatSummary(view)
	}
}

// intentFor maps a bot command to a session intent.
func intentFor(command, args string) (session.Intent, bool) {
	switch command {
	case "refresh":
		return session.Intent{Kind: session.Refresh}, true
	case "active":
		return session.Intent{Kind: session.ToggleActiveOnly}, true
	case "hood":
		if args == "" {
			return session.Intent{}, false
		}
		return session.Intent{Kind: session.ToggleNeighborhood, Arg: args}, true
	case "clearhoods":
		return session.Intent{Kind: session.ClearNeighborhoodFilter}, true
	case "place":
		if args == "" {
			return session.Intent{}, false
		}
		return session.Intent{Kind: session.SelectMarker, Arg: args}, true
	case "close":
		return session.Intent{Kind: session.DismissDetail}, true
	default:
		return session.Intent{}, false
	}
}
