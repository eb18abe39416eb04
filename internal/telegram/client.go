// Package telegram presents the discovery session in a Telegram chat.
//
// The Client is a map surface: marker changes are coalesced into a MarkdownV2
// digest, and focusing a place sends a venue pin followed by its details and,
// once known, its photo. Commands sent to the bot from the configured chat are
// turned into session intents.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/models"
	"github.com/rewired-gh/venuescout/internal/session"
)

const defaultDigestDelay = 3 * time.Second

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client handles Telegram presentation
type Client struct {
	bot            botAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	digestDelay    time.Duration

	mu           sync.Mutex
	markers      []models.Marker
	markersDirty bool
	detail       *session.Focus
	detailDirty  bool
	wake         chan struct{}

	// Owned by the Run goroutine.
	pinnedID    string
	pinnedPhoto string
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot botAPI, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		digestDelay:    defaultDigestDelay,
		wake:           make(chan struct{}, 1),
	}
}

// ShowMarkers queues a digest of the marker set. It never blocks.
func (c *Client) ShowMarkers(markers []models.Marker) {
	c.mu.Lock()
	c.markers = markers
	c.markersDirty = true
	c.mu.Unlock()
	c.notify()
}

// ShowDetail queues the focused place for delivery. It never blocks.
func (c *Client) ShowDetail(focus *session.Focus) {
	c.mu.Lock()
	c.detail = focus
	c.detailDirty = true
	c.mu.Unlock()
	c.notify()
}

func (c *Client) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run delivers queued digests and details until ctx is done. Marker changes
// arriving within the digest delay of each other produce one digest.
func (c *Client) Run(ctx context.Context) {
	var digest <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-c.wake:
			if focus, ok := c.takeDetail(); ok {
				c.deliverDetail(focus)
			}
			if digest == nil && c.hasPendingMarkers() {
				digest = time.After(c.digestDelay)
			}

		case <-digest:
			digest = nil
			if markers, ok := c.takeMarkers(); ok {
				if err := c.send(c.markdown(formatDigest(markers))); err != nil {
					logger.Warn("Failed to send marker digest: %v", err)
				}
			}
		}
	}
}

func (c *Client) takeDetail() (*session.Focus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.detailDirty {
		return nil, false
	}
	c.detailDirty = false
	return c.detail, true
}

func (c *Client) hasPendingMarkers() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markersDirty
}

func (c *Client) takeMarkers() ([]models.Marker, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.markersDirty {
		return nil, false
	}
	c.markersDirty = false
	return c.markers, true
}

// deliverDetail sends a venue pin and details for a newly focused place, and
// the photo once its URI is known. Repeated updates for the same place send
// nothing new.
func (c *Client) deliverDetail(focus *session.Focus) {
	if focus == nil {
		c.pinnedID, c.pinnedPhoto = "", ""
		return
	}

	p := focus.Place
	if p.Identifier != c.pinnedID {
		address := ""
		if p.FormattedAddress != nil {
			address = *p.FormattedAddress
		}
		venue := tgbotapi.NewVenue(c.chatID, p.DisplayName, address, p.Coordinate.Latitude, p.Coordinate.Longitude)
		if err := c.send(venue); err != nil {
			logger.Warn("Failed to send venue pin for %s: %v", p.Identifier, err)
			return
		}
		if err := c.send(c.markdown(formatDetail(focus))); err != nil {
			logger.Warn("Failed to send details for %s: %v", p.Identifier, err)
		}
		c.pinnedID, c.pinnedPhoto = p.Identifier, ""
	}

	if focus.PhotoURI != "" && focus.PhotoURI != c.pinnedPhoto {
		photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileURL(focus.PhotoURI))
		photo.Caption = p.DisplayName
		if err := c.send(photo); err != nil {
			logger.Warn("Failed to send photo for %s: %v", p.Identifier, err)
			return
		}
		c.pinnedPhoto = focus.PhotoURI
	}
}

func (c *Client) markdown(text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true
	return msg
}

// send delivers one message with linear backoff between attempts.
func (c *Client) send(msg tgbotapi.Chattable) error {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}
