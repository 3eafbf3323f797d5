package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/saravenpi/tablechat/internal/chat"
	"github.com/saravenpi/tablechat/internal/contacts"
	"github.com/saravenpi/tablechat/internal/format"
	"github.com/saravenpi/tablechat/internal/models"
)

type testFeed struct {
	frames chan []byte
	once   sync.Once
	closes int
}

func newTestFeed() *testFeed {
	return &testFeed{frames: make(chan []byte, 8)}
}

func (f *testFeed) Frames() <-chan []byte { return f.frames }

func (f *testFeed) Close() error {
	f.closes++
	f.once.Do(func() { close(f.frames) })
	return nil
}

type testBackend struct {
	bots    []models.Bot
	clients []models.Client
}

func (b *testBackend) ListBots(ctx context.Context) ([]models.Bot, error) {
	return b.bots, nil
}

func (b *testBackend) ListClients(ctx context.Context, botID string) ([]models.Client, error) {
	return b.clients, nil
}

func (b *testBackend) GetMessages(ctx context.Context, clientID string) ([]models.Message, error) {
	return nil, nil
}

func (b *testBackend) Subscribe(ctx context.Context, clientID string) (Feed, error) {
	return newTestFeed(), nil
}

var (
	testNow = time.Date(2024, 5, 3, 13, 0, 0, 0, time.UTC)
	testBot = models.Bot{UID: "b1", Name: "Trattoria"}

	testClients = []models.Client{
		{UID: "c1", Bot: "b1", Name: "Anna", PhoneNumber: "+491512345678", LastMessage: "Table for 3", LastMessageAt: testNow.Add(-time.Minute)},
		{UID: "c2", Bot: "b1", Name: "Marco", PhoneNumber: "+39333111222", LastMessage: "Grazie", LastMessageAt: testNow.Add(-time.Hour)},
	}
)

func testEnv(t *testing.T) *Env {
	return &Env{
		Backend:    &testBackend{bots: []models.Bot{testBot}, clients: testClients},
		Locale:     format.English,
		Breakpoint: 100,
		Timeout:    time.Second,
		Logger:     zaptest.NewLogger(t),
		Now:        func() time.Time { return testNow },
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m tea.Model, msg tea.Msg) ConsoleModel {
	t.Helper()
	next, _ := m.Update(msg)
	console, ok := next.(ConsoleModel)
	require.True(t, ok, "expected the console, got %T", next)
	return console
}

// openConsole returns a console of the given width with the conversation
// list loaded.
func openConsole(t *testing.T, env *Env, width int) ConsoleModel {
	m := NewConsoleModel(env, testBot)
	m = send(t, m, tea.WindowSizeMsg{Width: width, Height: 30})
	return send(t, m, clientsFetchedMsg{bot: testBot.UID, clients: testClients, marks: nil})
}

func frame(action, uid, text, media string) []byte {
	return []byte(`{"data":{"action":"` + action + `","data":{"uid":"` + uid + `","client":"c1","role":"USER","message":"` + text + `","sent_at":"2024-05-03T12:59:00Z","media_url":"` + media + `"}}}`)
}

func TestConsole_MobileHidesSidebarOnSelect(t *testing.T) {
	m := openConsole(t, testEnv(t), 80)
	require.True(t, m.Selection().Mobile())
	assert.True(t, m.Selection().SidebarVisible())

	m = send(t, m, key("enter"))

	assert.Equal(t, "c1", m.Selection().ClientID())
	assert.Equal(t, "Anna", m.Selection().Label())
	assert.False(t, m.Selection().SidebarVisible())
	assert.Equal(t, chat.Loading, m.Engine().State())
	assert.Contains(t, m.View(), "Loading messages")

	m = send(t, m, key("l"))
	assert.True(t, m.Selection().SidebarVisible())
	assert.Equal(t, "c1", m.Selection().ClientID())
}

func TestConsole_DesktopKeepsSidebar(t *testing.T) {
	m := openConsole(t, testEnv(t), 140)
	require.False(t, m.Selection().Mobile())

	m = send(t, m, key("enter"))
	assert.True(t, m.Selection().SidebarVisible())
	assert.Contains(t, m.View(), "Table for 3")

	// shrinking the terminal below the breakpoint hides it
	m = send(t, m, tea.WindowSizeMsg{Width: 90, Height: 30})
	assert.False(t, m.Selection().SidebarVisible())
}

func TestConsole_HistoryThenLiveFrames(t *testing.T) {
	m := openConsole(t, testEnv(t), 80)
	m = send(t, m, key("enter"))
	ticket := m.Engine().Ticket()

	feed := newTestFeed()
	m = send(t, m, feedOpenedMsg{ticket: ticket, feed: feed})
	m = send(t, m, feedFrameMsg{ticket: ticket, feed: feed, data: frame("created", "m2", "Is the terrace open?", "")})
	m = send(t, m, historyFetchedMsg{ticket: ticket, messages: []models.Message{
		{UID: "m1", Client: "c1", Role: models.RoleUser, Text: "Table for 3", SentAt: testNow.Add(-time.Minute)},
	}})

	require.Equal(t, chat.Live, m.Engine().State())
	require.Equal(t, 2, m.Engine().Count())
	assert.Equal(t, "m1", m.Engine().Messages()[0].UID)
	assert.Equal(t, "m2", m.Engine().Messages()[1].UID)

	m = send(t, m, feedFrameMsg{ticket: ticket, feed: feed, data: frame("created", "m3", "menu", "https://cdn.example.com/files/dinner_menu_spring_2024.pdf")})
	view := m.View()
	assert.Contains(t, view, "Is the terrace open?")
	assert.Contains(t, view, "📄")
	assert.Contains(t, view, "dinner...2024.pdf")
	assert.Contains(t, view, "● live")

	m = send(t, m, feedClosedMsg{ticket: ticket})
	assert.False(t, m.Engine().Connected())
	assert.Contains(t, m.View(), "live updates stopped")
}

func TestConsole_SwitchClosesPreviousFeed(t *testing.T) {
	m := openConsole(t, testEnv(t), 140)
	m = send(t, m, key("enter"))
	first := m.Engine().Ticket()

	feed := newTestFeed()
	m = send(t, m, feedOpenedMsg{ticket: first, feed: feed})
	m = send(t, m, historyFetchedMsg{ticket: first, messages: []models.Message{
		{UID: "m1", Client: "c1", Role: models.RoleUser, Text: "Table for 3", SentAt: testNow},
	}})

	m = send(t, m, key("tab"))
	m = send(t, m, key("down"))
	m = send(t, m, key("enter"))

	require.Equal(t, "c2", m.Selection().ClientID())
	assert.Equal(t, 1, feed.closes)
	assert.Equal(t, chat.Loading, m.Engine().State())
	assert.Zero(t, m.Engine().Count())

	// late results of the first conversation change nothing
	m = send(t, m, feedFrameMsg{ticket: first, feed: feed, data: frame("created", "m9", "late", "")})
	m = send(t, m, historyFetchedMsg{ticket: first, messages: []models.Message{{UID: "m1", Text: "late"}}})
	assert.Equal(t, chat.Loading, m.Engine().State())
	assert.Zero(t, m.Engine().Count())

	stale := newTestFeed()
	send(t, m, feedOpenedMsg{ticket: first, feed: stale})
	assert.Equal(t, 1, stale.closes)
}

func TestConsole_CloseConversation(t *testing.T) {
	m := openConsole(t, testEnv(t), 80)
	m = send(t, m, key("enter"))
	ticket := m.Engine().Ticket()
	feed := newTestFeed()
	m = send(t, m, feedOpenedMsg{ticket: ticket, feed: feed})

	m = send(t, m, key("esc"))

	assert.False(t, m.Selection().HasSelection())
	assert.True(t, m.Selection().SidebarVisible())
	assert.Equal(t, chat.Idle, m.Engine().State())
	assert.Equal(t, 1, feed.closes)
}

func TestConsole_HistoryFailure(t *testing.T) {
	m := openConsole(t, testEnv(t), 80)
	m = send(t, m, key("enter"))
	ticket := m.Engine().Ticket()

	m = send(t, m, historyFetchedMsg{ticket: ticket, err: assert.AnError})
	assert.Equal(t, chat.Failed, m.Engine().State())
	assert.Contains(t, m.View(), "r: retry")

	m = send(t, m, key("r"))
	assert.Equal(t, chat.Loading, m.Engine().State())
	assert.NotEqual(t, ticket, m.Engine().Ticket())
}

func TestConsole_AddContactForUnknownCustomer(t *testing.T) {
	env := testEnv(t)
	env.Contacts = contacts.NewBook(t.TempDir())

	m := openConsole(t, env, 80)
	m = send(t, m, key("enter"))

	next, _ := m.Update(key("a"))
	form, ok := next.(ContactFormModel)
	require.True(t, ok, "expected the contact form, got %T", next)
	assert.Equal(t, "+491512345678", form.inputs[fieldPhone1].Value())

	// live frames keep reaching the console underneath
	ticket := m.Engine().Ticket()
	feed := newTestFeed()
	next, _ = form.Update(feedOpenedMsg{ticket: ticket, feed: feed})
	assert.True(t, m.Engine().Connected())

	next, _ = next.Update(key("esc"))
	_, ok = next.(ConsoleModel)
	assert.True(t, ok)
}

func TestConsole_ContactSavedRelabels(t *testing.T) {
	env := testEnv(t)
	env.Contacts = contacts.NewBook(t.TempDir())

	m := openConsole(t, env, 80)
	m = send(t, m, key("enter"))
	require.Equal(t, "Anna", m.Selection().Label())

	require.NoError(t, env.Contacts.Save(contacts.Contact{Name: "Anna Rossi", PhoneNumbers: []string{"0049 151 2345678"}}))
	m = send(t, m, contactSavedMsg{name: "Anna Rossi"})
	assert.Equal(t, "Anna Rossi", m.Selection().Label())
}

// gatedBackend holds Subscribe until release is closed, like a websocket
// handshake that is slower than the history request.
type gatedBackend struct {
	*testBackend
	release chan struct{}
	dialed  chan context.Context
}

func (b *gatedBackend) Subscribe(ctx context.Context, clientID string) (Feed, error) {
	b.dialed <- ctx
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return newTestFeed(), nil
}

// runCmd runs every leaf of a possibly batched command concurrently and
// delivers their messages.
func runCmd(cmd tea.Cmd) <-chan tea.Msg {
	out := make(chan tea.Msg, 16)
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					run(sub)
				}
				return
			}
			out <- msg
		}()
	}
	run(cmd)
	return out
}

func waitFor[T tea.Msg](t *testing.T, msgs <-chan tea.Msg) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-msgs:
			if found, ok := msg.(T); ok {
				return found
			}
		case <-timeout:
			var zero T
			t.Fatalf("no %T delivered", zero)
			return zero
		}
	}
}

func TestConsole_SlowDialSurvivesHistory(t *testing.T) {
	env := testEnv(t)
	backend := &gatedBackend{
		testBackend: env.Backend.(*testBackend),
		release:     make(chan struct{}),
		dialed:      make(chan context.Context, 1),
	}
	env.Backend = backend

	m := openConsole(t, env, 80)
	next, cmd := m.Update(key("enter"))
	m = next.(ConsoleModel)
	msgs := runCmd(cmd)

	var dialCtx context.Context
	select {
	case dialCtx = <-backend.dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("dial never started")
	}

	m = send(t, m, waitFor[historyFetchedMsg](t, msgs))
	require.Equal(t, chat.Live, m.Engine().State())
	assert.NoError(t, dialCtx.Err())

	close(backend.release)
	opened := waitFor[feedOpenedMsg](t, msgs)
	require.NoError(t, opened.err)

	m = send(t, m, opened)
	assert.True(t, m.Engine().Connected())
	assert.Contains(t, m.View(), "● live")

	m.Engine().Stop()
	assert.Error(t, dialCtx.Err())
}
