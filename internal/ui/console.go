package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/saravenpi/tablechat/internal/chat"
	"github.com/saravenpi/tablechat/internal/models"
)

type historyFetchedMsg struct {
	ticket   chat.Ticket
	messages []models.Message
	err      error
}

type feedOpenedMsg struct {
	ticket chat.Ticket
	feed   Feed
	err    error
}

type feedFrameMsg struct {
	ticket chat.Ticket
	feed   Feed
	data   []byte
}

type feedClosedMsg struct {
	ticket chat.Ticket
}

// ConsoleModel puts the conversation list and the chat pane of one bot on
// screen. It owns the selection and the reconciliation engine and runs the
// fetch and live feed of whichever conversation is selected.
type ConsoleModel struct {
	env       *Env
	bot       models.Bot
	selection *chat.Selection
	engine    *chat.Engine
	list      ConversationsModel
	chat      MessagesModel
	focus     models.ViewMode
	width     int
	height    int
	logger    *zap.Logger
}

const helpHeight = 1

func NewConsoleModel(env *Env, bot models.Bot) ConsoleModel {
	selection := chat.NewSelection(false)
	engine := chat.NewEngine()

	return ConsoleModel{
		env:       env,
		bot:       bot,
		selection: selection,
		engine:    engine,
		list:      NewConversationsModel(env, bot, selection),
		chat:      NewMessagesModel(env, selection, engine),
		focus:     models.ViewList,
		width:     120,
		height:    30,
		logger:    env.log().Named("console").With(zap.String("bot", bot.UID)),
	}
}

func (m ConsoleModel) Init() tea.Cmd {
	return m.list.Init()
}

// Selection exposes the shared selection state, mainly for tests.
func (m ConsoleModel) Selection() *chat.Selection { return m.selection }

// Engine exposes the reconciliation engine, mainly for tests.
func (m ConsoleModel) Engine() *chat.Engine { return m.engine }

// sync starts or tears down the per-conversation lifecycle whenever the
// selected conversation differs from the one the engine is running.
func (m *ConsoleModel) sync() tea.Cmd {
	target := m.selection.ClientID()
	if target == m.engine.ClientID() {
		return nil
	}
	return m.restart()
}

// restart switches the engine to the selected conversation, even if it is
// the one already running, and issues the history fetch and the dial in
// parallel.
func (m *ConsoleModel) restart() tea.Cmd {
	target := m.selection.ClientID()
	ticket, ctx := m.engine.Switch(context.Background(), target)
	m.chat.Refresh()
	m.list.Relabel()

	if target == "" {
		m.focus = models.ViewList
		m.logger.Debug("conversation closed")
		return nil
	}

	m.focus = models.ViewDetail
	m.logger.Info("conversation opened", zap.String("client", target), zap.Uint64("generation", ticket.Generation))
	return tea.Batch(m.chat.Tick(), m.fetchHistoryCmd(ctx, ticket), m.dialCmd(ctx, ticket))
}

func (m ConsoleModel) fetchHistoryCmd(ctx context.Context, ticket chat.Ticket) tea.Cmd {
	env := m.env
	return func() tea.Msg {
		if env.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, env.Timeout)
			defer cancel()
		}
		messages, err := env.Backend.GetMessages(ctx, ticket.ClientID)
		return historyFetchedMsg{ticket: ticket, messages: messages, err: err}
	}
}

func (m ConsoleModel) dialCmd(ctx context.Context, ticket chat.Ticket) tea.Cmd {
	backend := m.env.Backend
	return func() tea.Msg {
		feed, err := backend.Subscribe(ctx, ticket.ClientID)
		return feedOpenedMsg{ticket: ticket, feed: feed, err: err}
	}
}

// waitForFrame delivers the next frame of feed, or feedClosedMsg once the
// feed has ended.
func waitForFrame(ticket chat.Ticket, feed Feed) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-feed.Frames()
		if !ok {
			return feedClosedMsg{ticket: ticket}
		}
		return feedFrameMsg{ticket: ticket, feed: feed, data: data}
	}
}

func (m *ConsoleModel) markRead() tea.Cmd {
	latest, ok := m.engine.Latest()
	if !ok {
		return nil
	}
	clientID := m.engine.ClientID()
	m.list.MarkRead(clientID, latest.SentAt)

	state, logger := m.env.State, m.logger
	if state == nil {
		return nil
	}
	return func() tea.Msg {
		if err := state.MarkRead(clientID, latest.SentAt); err != nil {
			logger.Warn("failed to mark conversation as read", zap.String("client", clientID), zap.Error(err))
		}
		return nil
	}
}

func (m *ConsoleModel) layout() {
	m.selection.SetMobile(m.width < m.env.Breakpoint)
	bodyHeight := max(m.height-helpHeight, 1)

	if m.selection.Mobile() {
		m.list.SetSize(m.width, bodyHeight)
		m.chat.SetSize(m.width, bodyHeight)
		return
	}

	listWidth := max(m.width/3, 30)
	m.list.SetSize(listWidth, bodyHeight)
	m.chat.SetSize(max(m.width-listWidth-2, 1), bodyHeight)
}

// listFocused reports whether keys go to the conversation list.
func (m ConsoleModel) listFocused() bool {
	if !m.selection.HasSelection() {
		return true
	}
	if m.selection.Mobile() {
		return m.selection.SidebarVisible()
	}
	return m.focus == models.ViewList
}

func (m ConsoleModel) quit() (tea.Model, tea.Cmd) {
	m.engine.Stop()
	return m, tea.Quit
}

func (m ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case clientsFetchedMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if label, ok := m.list.LabelFor(m.selection.ClientID()); ok {
			m.selection.Relabel(label)
		}
		return m, cmd

	case historyFetchedMsg:
		if !m.engine.ResolveHistory(msg.ticket, msg.messages, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("history fetch failed", zap.String("client", msg.ticket.ClientID), zap.Error(msg.err))
		}
		m.chat.Refresh()
		return m, m.markRead()

	case feedOpenedMsg:
		if msg.err != nil {
			if m.engine.Current(msg.ticket) {
				m.logger.Warn("live feed unavailable", zap.String("client", msg.ticket.ClientID), zap.Error(msg.err))
				m.engine.FeedClosed(msg.ticket)
			}
			return m, nil
		}
		if !m.engine.Attach(msg.ticket, msg.feed) {
			return m, nil
		}
		return m, waitForFrame(msg.ticket, msg.feed)

	case feedFrameMsg:
		if !m.engine.Current(msg.ticket) {
			return m, nil
		}
		next := waitForFrame(msg.ticket, msg.feed)
		if !m.engine.HandleFrame(msg.ticket, msg.data) {
			m.logger.Debug("frame ignored", zap.String("client", msg.ticket.ClientID))
			return m, next
		}
		m.chat.Refresh()
		if latest, ok := m.engine.Latest(); ok {
			m.list.Touch(latest)
		}
		if m.engine.State() == chat.Live {
			return m, tea.Batch(next, m.markRead())
		}
		return m, next

	case feedClosedMsg:
		if m.engine.Current(msg.ticket) {
			m.logger.Info("live feed ended", zap.String("client", msg.ticket.ClientID))
			m.engine.FeedClosed(msg.ticket)
		}
		return m, nil

	case contactSavedMsg:
		m.env.Contacts.Invalidate()
		m.list.Relabel()
		if label, ok := m.list.LabelFor(m.selection.ClientID()); ok {
			m.selection.Relabel(label)
		}
		m.chat.Refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var listCmd, chatCmd tea.Cmd
	m.list, listCmd = m.list.Update(msg)
	m.chat, chatCmd = m.chat.Update(msg)
	return m, tea.Batch(listCmd, chatCmd)
}

func (m ConsoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.listFocused() {
		if m.list.Filtering() {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q":
			return m.quit()
		case "esc":
			if m.selection.HasSelection() {
				// mobile: back to the open conversation; desktop: back to the chat pane
				if m.selection.Mobile() {
					m.selection.SetSidebarVisible(false)
				}
				m.focus = models.ViewDetail
				return m, nil
			}
			m.engine.Stop()
			menu := NewMenuModel(m.env)
			updated, _ := menu.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
			menu = updated.(MenuModel)
			return menu, menu.Init()
		case "tab":
			if m.selection.HasSelection() && !m.selection.Mobile() {
				m.focus = models.ViewDetail
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if msg.String() == "enter" && m.selection.ClientID() == m.engine.ClientID() && m.selection.HasSelection() {
			// the open conversation was picked again
			m.selection.SetSidebarVisible(false)
			m.focus = models.ViewDetail
			return m, cmd
		}
		return m, tea.Batch(cmd, m.sync())
	}

	switch msg.String() {
	case "q":
		return m.quit()

	case "esc":
		m.selection.Clear()
		return m, m.sync()

	case "tab":
		if !m.selection.Mobile() {
			m.focus = models.ViewList
		}
		return m, nil

	case "l":
		if m.selection.Mobile() {
			m.selection.SetSidebarVisible(true)
		}
		m.focus = models.ViewList
		return m, nil

	case "r":
		return m, m.restart()

	case "a":
		if contact, ok := m.newContactForSelection(); ok {
			form := NewContactFormModel(m.env, contact, m)
			updated, _ := form.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
			form = updated.(ContactFormModel)
			return form, form.Init()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// newContactForSelection prepares a contact for the open conversation when
// its counterpart is not in the contact book yet.
func (m ConsoleModel) newContactForSelection() (*contactDraft, bool) {
	for _, c := range m.list.clients {
		if c.UID != m.selection.ClientID() {
			continue
		}
		if c.PhoneNumber == "" || m.env.Contacts == nil || m.env.Contacts.NameFor(c.PhoneNumber) != "" {
			return nil, false
		}
		return &contactDraft{name: c.Name, phone: c.PhoneNumber}, true
	}
	return nil, false
}

func (m ConsoleModel) help() string {
	if m.listFocused() {
		return "↑↓/jk: navigate • enter: open • /: search • r: refresh • esc: back • q: quit"
	}
	text := fmt.Sprintf("↑↓/jk: scroll • r: reload • esc: close • q: quit • %d%%", m.chat.ScrollPercent())
	if _, ok := m.newContactForSelection(); ok {
		text = "a: add contact • " + text
	}
	if m.selection.Mobile() {
		return "l: conversations • " + text
	}
	return "tab: conversations • " + text
}

func (m ConsoleModel) View() string {
	var body string
	switch {
	case !m.selection.Mobile():
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			paneStyle.Height(max(m.height-helpHeight, 1)).Render(m.list.View()),
			m.chat.View())
	case m.selection.SidebarVisible():
		body = m.list.View()
	default:
		body = m.chat.View()
	}

	return body + "\n" + helpStyle.Render(m.help())
}
