package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/saravenpi/tablechat/internal/chat"
	"github.com/saravenpi/tablechat/internal/models"
)

// MessagesModel is the chat pane. It renders whatever the engine holds for
// the selected conversation and never changes either of them.
type MessagesModel struct {
	env       *Env
	selection *chat.Selection
	engine    *chat.Engine
	viewport  viewport.Model
	spinner   spinner.Model
	width     int
	height    int
}

const (
	chatHeaderHeight = 3
	chatStatusHeight = 1
)

func NewMessagesModel(env *Env, selection *chat.Selection, engine *chat.Engine) MessagesModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	vp := viewport.New(80, 20)

	return MessagesModel{
		env:       env,
		selection: selection,
		engine:    engine,
		viewport:  vp,
		spinner:   s,
		width:     80,
		height:    24,
	}
}

func (m *MessagesModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width, 1)
	m.viewport.Height = max(height-chatHeaderHeight-chatStatusHeight, 1)
	m.Refresh()
}

// Tick starts the loading spinner.
func (m MessagesModel) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Refresh re-renders the reconciled list and scrolls to the newest message.
// Layout is synchronous, so the viewport already has its final height here.
func (m *MessagesModel) Refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m MessagesModel) render() string {
	messages := m.engine.Messages()
	if len(messages) == 0 {
		return ""
	}

	wrapWidth := m.viewport.Width
	if wrapWidth <= 0 {
		wrapWidth = 80
	}
	textWidth := max(wrapWidth-10, 10)
	right := lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth)

	var content strings.Builder
	for i, message := range messages {
		if i > 0 {
			content.WriteString("\n")
		}

		timestamp := m.env.Locale.Clock(message.SentAt.Local())
		sender := m.senderName(message)
		header := messageHeaderStyle.Render(fmt.Sprintf("%s • %s", sender, timestamp))

		var lines []string
		lines = append(lines, header)
		if message.Text != "" {
			wrapped := wordwrap.String(message.Text, textWidth)
			if message.FromCustomer() {
				lines = append(lines, messageFromCustomerStyle.Render(wrapped))
			} else {
				lines = append(lines, messageFromAssistantStyle.Render(wrapped))
			}
		}
		if message.MediaURL != "" {
			lines = append(lines, m.renderMedia(message.MediaURL))
		}

		for _, line := range lines {
			if message.FromCustomer() {
				content.WriteString(line + "\n")
			} else {
				content.WriteString(right.Render(line) + "\n")
			}
		}
	}

	return content.String()
}

func (m MessagesModel) senderName(message models.Message) string {
	if !message.FromCustomer() {
		return "Bot"
	}
	if label := m.selection.Label(); label != "" {
		return label
	}
	return "Customer"
}

func (m MessagesModel) renderMedia(url string) string {
	link := m.env.Locale.Media(url)
	icon := "📎"
	if link.PDF {
		icon = "📄"
	}
	return fmt.Sprintf("%s %s %s", icon, linkStyle.Render(link.Label), messageHeaderStyle.Render(link.URL))
}

func (m MessagesModel) Update(msg tea.Msg) (MessagesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.engine.State() == chat.Loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg, tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m MessagesModel) header() string {
	label := m.selection.Label()
	if label == "" {
		label = m.selection.ClientID()
	}
	count := m.engine.Count()
	noun := "messages"
	if count == 1 {
		noun = "message"
	}
	return titleStyle.Render(fmt.Sprintf("💬 %s", label)) + messageHeaderStyle.Render(fmt.Sprintf("  %d %s", count, noun))
}

func (m MessagesModel) status() string {
	if m.engine.State() != chat.Live {
		return ""
	}
	if !m.engine.Connected() {
		return warnStyle.Render("● live updates stopped • r: reconnect")
	}
	return statusStyle.Render("● live")
}

func (m MessagesModel) View() string {
	if !m.selection.HasSelection() {
		return "\n" + normalStyle.Render("  Select a conversation to read it.") + "\n"
	}

	s := m.header() + "\n"

	switch m.engine.State() {
	case chat.Loading:
		s += fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View())
		return s

	case chat.Failed:
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.engine.Err())) + "\n\n"
		s += helpStyle.Render("r: retry")
		return s
	}

	if m.engine.Count() == 0 {
		s += normalStyle.Render("  No messages in this conversation.") + "\n"
	} else {
		s += m.viewport.View() + "\n"
	}
	s += m.status()

	return s
}

// ScrollPercent is shown in the help line.
func (m MessagesModel) ScrollPercent() int {
	return int(m.viewport.ScrollPercent() * 100)
}
