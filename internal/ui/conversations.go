package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/saravenpi/tablechat/internal/chat"
	"github.com/saravenpi/tablechat/internal/format"
	"github.com/saravenpi/tablechat/internal/models"
	"github.com/saravenpi/tablechat/internal/store"
)

type clientItem struct {
	client models.Client
	label  string
	unread bool
	locale format.Locale
	now    func() time.Time
}

type clientsFetchedMsg struct {
	bot     string
	clients []models.Client
	marks   map[string]time.Time
	err     error
}

func (i clientItem) Title() string {
	if i.unread {
		return unreadStyle.Render("● ") + i.label
	}
	return i.label
}

func (i clientItem) Description() string {
	return fmt.Sprintf("%s • %s", i.locale.TimeAgo(i.client.LastMessageAt, i.now()), i.locale.Preview(i.client.LastMessage))
}

func (i clientItem) FilterValue() string {
	return i.label + " " + i.client.PhoneNumber
}

// ConversationsModel is the list panel: the customers who wrote to one bot.
type ConversationsModel struct {
	env       *Env
	bot       models.Bot
	selection *chat.Selection
	clients   []models.Client
	marks     map[string]time.Time
	list      list.Model
	loading   bool
	err       error
	spinner   spinner.Model
	width     int
	height    int
}

func NewConversationsModel(env *Env, bot models.Bot, selection *chat.Selection) ConversationsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 40, 20)
	l.Title = botTitle(bot)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return ConversationsModel{
		env:       env,
		bot:       bot,
		selection: selection,
		marks:     map[string]time.Time{},
		list:      l,
		loading:   true,
		spinner:   s,
		width:     40,
		height:    20,
	}
}

func botTitle(bot models.Bot) string {
	if bot.Name != "" {
		return bot.Name
	}
	return "Conversations"
}

func (m ConversationsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchClientsCmd())
}

func (m ConversationsModel) fetchClientsCmd() tea.Cmd {
	env, botID := m.env, m.bot.UID
	return func() tea.Msg {
		ctx, cancel := env.requestContext()
		defer cancel()

		clients, err := env.Backend.ListClients(ctx, botID)
		if err != nil {
			return clientsFetchedMsg{bot: botID, err: err}
		}

		marks := map[string]time.Time{}
		if env.State != nil {
			if marks, err = env.State.ReadMarks(); err != nil {
				env.log().Warn("failed to load read marks", zap.Error(err))
				marks = map[string]time.Time{}
			}
		}
		return clientsFetchedMsg{bot: botID, clients: clients, marks: marks}
	}
}

func (m *ConversationsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

// Filtering reports whether the filter input has the keyboard.
func (m ConversationsModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m ConversationsModel) Loading() bool {
	return m.loading
}

func (m *ConversationsModel) setItems() {
	var selected string
	if item, ok := m.list.SelectedItem().(clientItem); ok {
		selected = item.client.UID
	}

	cursor := -1
	items := make([]list.Item, len(m.clients))
	for i, c := range m.clients {
		if c.UID == selected {
			cursor = i
		}
		items[i] = clientItem{
			client: c,
			label:  m.env.labelFor(c),
			unread: m.env.State != nil && c.UID != m.selection.ClientID() && store.Unread(m.marks, c.UID, c.LastMessageAt),
			locale: m.env.Locale,
			now:    m.env.now,
		}
	}
	m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
	m.list.Title = fmt.Sprintf("%s - %d chats", botTitle(m.bot), len(m.clients))
}

// MarkRead clears the unread marker of a conversation.
func (m *ConversationsModel) MarkRead(clientID string, at time.Time) {
	if m.marks == nil {
		m.marks = map[string]time.Time{}
	}
	if prev, ok := m.marks[clientID]; !ok || at.After(prev) {
		m.marks[clientID] = at
	}
	m.setItems()
}

// Touch moves a conversation to the top after a live message arrived.
func (m *ConversationsModel) Touch(msg models.Message) {
	for i, c := range m.clients {
		if c.UID != msg.Client {
			continue
		}
		if msg.SentAt.Before(c.LastMessageAt) {
			return
		}
		c.LastMessage = msg.Text
		c.LastMessageAt = msg.SentAt
		next := append([]models.Client{c}, m.clients[:i]...)
		m.clients = append(next, m.clients[i+1:]...)
		m.setItems()
		return
	}
}

// Relabel re-resolves labels after the contact book changed.
func (m *ConversationsModel) Relabel() {
	m.setItems()
}

// LabelFor returns the current label of a conversation.
func (m ConversationsModel) LabelFor(clientID string) (string, bool) {
	for _, c := range m.clients {
		if c.UID == clientID {
			return m.env.labelFor(c), true
		}
	}
	return "", false
}

func (m ConversationsModel) Update(msg tea.Msg) (ConversationsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case clientsFetchedMsg:
		if msg.bot != m.bot.UID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.clients = msg.clients
		m.marks = msg.marks
		if m.marks == nil {
			m.marks = map[string]time.Time{}
		}
		m.setItems()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.Filtering() {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "r":
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, m.fetchClientsCmd())
			}
			return m, nil

		case "enter":
			if m.loading {
				return m, nil
			}
			if item, ok := m.list.SelectedItem().(clientItem); ok {
				m.selection.Select(item.client.UID, item.label)
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ConversationsModel) View() string {
	if m.loading && len(m.clients) == 0 {
		return fmt.Sprintf("\n  %s Loading conversations...\n", m.spinner.View())
	}

	if m.err != nil {
		s := titleStyle.Render(botTitle(m.bot)) + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry")
		return s
	}

	if len(m.clients) == 0 {
		s := titleStyle.Render(botTitle(m.bot)) + "\n\n"
		s += normalStyle.Render("  No conversations yet.") + "\n"
		return s
	}

	return m.list.View()
}
