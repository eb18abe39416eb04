package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/venuescout/internal/models"
	"github.com/rewired-gh/venuescout/internal/session"
)

func strPtr(s string) *string { return &s }

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	failures int
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 8)}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return tgbotapi.Message{}, errors.New("telegram: Too Many Requests")
	}
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func (b *fakeBot) messages() []tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]tgbotapi.Chattable, len(b.sent))
	copy(out, b.sent)
	return out
}

func waitSent(t *testing.T, b *fakeBot, n int) []tgbotapi.Chattable {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs := b.messages()
		if len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sent messages, got %d", n, len(msgs))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Joe's Pub", "Joe's Pub"},
		{"4.5", "4\\.5"},
		{"Bar-Café (SoHo)!", "Bar\\-Café \\(SoHo\\)\\!"},
		{"a_b*c", "a\\_b\\*c"},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.in); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDigest(t *testing.T) {
	markers := []models.Marker{
		{Identifier: "p1", Label: "Blue Bar", Snippet: "Cocktail Bar · 4.5★"},
		{Identifier: "p2", Label: "Joe's"},
	}
	msg := formatDigest(markers)

	for _, want := range []string{"*2 venues on the map*", "1\\. *Blue Bar*", "Cocktail Bar · 4\\.5★", "`/place p2`"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected digest to contain %q, got:\n%s", want, msg)
		}
	}

	if empty := formatDigest(nil); !strings.Contains(empty, "No venues") {
		t.Errorf("Unexpected empty digest %q", empty)
	}

	many := make([]models.Marker, maxDigestEntries+5)
	for i := range many {
		many[i] = models.Marker{Identifier: "p", Label: "Venue"}
	}
	if long := formatDigest(many); !strings.Contains(long, "and 5 more") {
		t.Errorf("Expected truncated digest, got:\n%s", long)
	}
}

func TestFormatDetail(t *testing.T) {
	rating := 4.5
	focus := &session.Focus{Place: models.ResolvedPlace{
		Identifier:           "p1",
		DisplayName:          "Blue Bar",
		Rating:               &rating,
		DerivedCategoryLabel: strPtr("Cocktail Bar"),
		FormattedAddress:     strPtr("1 Main St."),
		AttachedDescription:  strPtr("$5 margaritas!"),
	}}

	msg := formatDetail(focus)
	for _, want := range []string{"*Blue Bar*", "Cocktail Bar", "4\\.5", "1 Main St\\.", "$5 margaritas\\!"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected detail to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	v := session.View{
		Loading:       true,
		ActiveOnly:    true,
		Selected:      []string{"SoHo"},
		TotalEvents:   4,
		VisibleEvents: 2,
		Markers:       []models.Marker{{Identifier: "p1"}},
	}
	got := formatSummary(v)
	for _, want := range []string{"Refreshing", "2 of 4 events visible, 1 venues", "active only; SoHo"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected summary to contain %q, got %q", want, got)
		}
	}

	v = session.View{Error: &session.ViewError{Kind: "network", Message: "status 503"}}
	if got := formatSummary(v); !strings.Contains(got, "Last fetch failed (network)") {
		t.Errorf("Expected error in summary, got %q", got)
	}
}

func TestIntentFor(t *testing.T) {
	tests := []struct {
		command string
		args    string
		want    session.Intent
		ok      bool
	}{
		{"refresh", "", session.Intent{Kind: session.Refresh}, true},
		{"active", "", session.Intent{Kind: session.ToggleActiveOnly}, true},
		{"hood", "East Village", session.Intent{Kind: session.ToggleNeighborhood, Arg: "East Village"}, true},
		{"hood", "", session.Intent{}, false},
		{"clearhoods", "", session.Intent{Kind: session.ClearNeighborhoodFilter}, true},
		{"place", "p1", session.Intent{Kind: session.SelectMarker, Arg: "p1"}, true},
		{"place", "", session.Intent{}, false},
		{"close", "", session.Intent{Kind: session.DismissDetail}, true},
		{"unknown", "", session.Intent{}, false},
	}

	for _, tt := range tests {
		got, ok := intentFor(tt.command, tt.args)
		if ok != tt.ok || got != tt.want {
			t.Errorf("intentFor(%q, %q) = %+v, %v; want %+v, %v", tt.command, tt.args, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSend_Retries(t *testing.T) {
	bot := newFakeBot()
	bot.failures = 2
	c := newClient(bot, 42, 3, time.Millisecond)

	if err := c.send(tgbotapi.NewMessage(42, "hi")); err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if n := len(bot.messages()); n != 1 {
		t.Errorf("Expected 1 delivered message, got %d", n)
	}

	bot.failures = 5
	if err := c.send(tgbotapi.NewMessage(42, "hi")); err == nil {
		t.Error("Expected error after exhausting retries")
	}
}

func TestDeliverDetail(t *testing.T) {
	bot := newFakeBot()
	c := newClient(bot, 42, 1, time.Millisecond)

	place := models.ResolvedPlace{
		Identifier:       "p1",
		DisplayName:      "Blue Bar",
		Coordinate:       models.Coordinate{Latitude: 40.72, Longitude: -74.0},
		FormattedAddress: strPtr("1 Main St"),
	}

	c.deliverDetail(&session.Focus{Place: place})
	msgs := bot.messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected venue pin and details, got %d messages", len(msgs))
	}
	venue, ok := msgs[0].(tgbotapi.VenueConfig)
	if !ok {
		t.Fatalf("Expected VenueConfig first, got %T", msgs[0])
	}
	if venue.Title != "Blue Bar" || venue.Address != "1 Main St" || venue.Latitude != 40.72 || venue.Longitude != -74.0 {
		t.Errorf("Unexpected venue %+v", venue)
	}
	if details, ok := msgs[1].(tgbotapi.MessageConfig); !ok || details.ParseMode != "MarkdownV2" {
		t.Errorf("Expected MarkdownV2 details, got %#v", msgs[1])
	}

	// Same place again sends nothing new.
	c.deliverDetail(&session.Focus{Place: place})
	if n := len(bot.messages()); n != 2 {
		t.Errorf("Expected no resend for the same place, got %d messages", n)
	}

	// The photo follows once known.
	c.deliverDetail(&session.Focus{Place: place, PhotoURI: "https://photos.example/p1.jpg"})
	msgs = bot.messages()
	if len(msgs) != 3 {
		t.Fatalf("Expected photo message, got %d messages", len(msgs))
	}
	if _, ok := msgs[2].(tgbotapi.PhotoConfig); !ok {
		t.Errorf("Expected PhotoConfig, got %T", msgs[2])
	}

	// Dismissal resets, so focusing again re-pins.
	c.deliverDetail(nil)
	c.deliverDetail(&session.Focus{Place: place})
	if n := len(bot.messages()); n != 5 {
		t.Errorf("Expected re-pin after dismissal, got %d messages", n)
	}
}

func TestRun_CoalescesMarkerDigests(t *testing.T) {
	bot := newFakeBot()
	c := newClient(bot, 42, 1, time.Millisecond)
	c.digestDelay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.ShowMarkers([]models.Marker{{Identifier: "p1", Label: "One"}})
	c.ShowMarkers([]models.Marker{{Identifier: "p1", Label: "One"}, {Identifier: "p2", Label: "Two"}})
	c.ShowMarkers([]models.Marker{{Identifier: "p1", Label: "One"}, {Identifier: "p2", Label: "Two"}, {Identifier: "p3", Label: "Three"}})

	msgs := waitSent(t, bot, 1)
	time.Sleep(60 * time.Millisecond)
	if n := len(bot.messages()); n != 1 {
		t.Fatalf("Expected one coalesced digest, got %d", n)
	}
	digest, ok := msgs[0].(tgbotapi.MessageConfig)
	if !ok || !strings.Contains(digest.Text, "*3 venues on the map*") {
		t.Errorf("Expected digest of the latest marker set, got %#v", msgs[0])
	}
}

type fakeSession struct {
	mu         sync.Mutex
	view       session.View
	dispatched []session.Intent
}

func (f *fakeSession) View() session.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSession) Dispatch(ctx context.Context, in session.Intent) (session.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, in)
	if in.Kind == session.SelectMarker && in.Arg == "p1" {
		f.view.Focus = &session.Focus{Place: models.ResolvedPlace{Identifier: "p1"}}
	}
	return f.view, nil
}

func (f *fakeSession) intents() []session.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]session.Intent, len(f.dispatched))
	copy(out, f.dispatched)
	return out
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	command := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}}
}

func TestHandleUpdate(t *testing.T) {
	bot := newFakeBot()
	c := newClient(bot, 42, 1, time.Millisecond)
	sess := &fakeSession{view: session.View{Neighborhoods: []string{"SoHo", "Tribeca"}, Selected: []string{"SoHo"}}}
	ctx := context.Background()

	c.handleUpdate(ctx, sess, commandUpdate(7, "/refresh"))
	if len(sess.intents()) != 0 {
		t.Fatal("Expected commands from other chats to be ignored")
	}

	c.handleUpdate(ctx, sess, commandUpdate(42, "/hood East Village"))
	got := sess.intents()
	if len(got) != 1 || got[0] != (session.Intent{Kind: session.ToggleNeighborhood, Arg: "East Village"}) {
		t.Fatalf("Unexpected intents %+v", got)
	}

	c.handleUpdate(ctx, sess, commandUpdate(42, "/hoods"))
	msgs := bot.messages()
	reply, ok := msgs[len(msgs)-1].(tgbotapi.MessageConfig)
	if !ok || !strings.Contains(reply.Text, "✅ SoHo") || !strings.Contains(reply.Text, "◻️ Tribeca") {
		t.Errorf("Unexpected /hoods reply %#v", msgs[len(msgs)-1])
	}

	before := len(bot.messages())
	c.handleUpdate(ctx, sess, commandUpdate(42, "/place p1"))
	if n := len(bot.messages()); n != before {
		t.Errorf("Expected no text reply when the place is focused, got %d new messages", n-before)
	}

	c.handleUpdate(ctx, sess, commandUpdate(42, "/place p9"))
	msgs = bot.messages()
	reply, _ = msgs[len(msgs)-1].(tgbotapi.MessageConfig)
	if !strings.Contains(reply.Text, "No venue with id p9") {
		t.Errorf("Expected no-op reply for unknown place, got %q", reply.Text)
	}

	c.handleUpdate(ctx, sess, commandUpdate(42, "/hood"))
	msgs = bot.messages()
	reply, _ = msgs[len(msgs)-1].(tgbotapi.MessageConfig)
	if reply.Text != "Usage: /hood <name>" {
		t.Errorf("Expected usage reply, got %q", reply.Text)
	}
}

func TestListenForCommands(t *testing.T) {
	bot := newFakeBot()
	c := newClient(bot, 42, 1, time.Millisecond)
	sess := &fakeSession{}

	ctx, cancel := context.WithCancel(context.Background())
	c.ListenForCommands(ctx, sess)

	bot.updates <- commandUpdate(42, "/active")
	deadline := time.Now().Add(2 * time.Second)
	for len(sess.intents()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("command was not dispatched")
		}
		time.Sleep(time.Millisecond)
	}
	if got := sess.intents()[0]; got.Kind != session.ToggleActiveOnly {
		t.Errorf("Expected toggle active-only, got %+v", got)
	}

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for {
		bot.mu.Lock()
		stopped := bot.stopped
		bot.mu.Unlock()
		if stopped {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected updates to stop after cancel")
		}
		time.Sleep(time.Millisecond)
	}
}
