package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/tablechat/internal/models"
)

type menuItem struct {
	title    string
	desc     string
	bot      *models.Bot
	contacts bool
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

type botsFetchedMsg struct {
	bots []models.Bot
	err  error
}

// MenuModel lets the user pick which restaurant bot to follow.
type MenuModel struct {
	env          *Env
	list         list.Model
	loading      bool
	err          error
	spinner      spinner.Model
	windowWidth  int
	windowHeight int
}

// NewMenuModel creates the main menu: one entry per bot plus Contacts.
func NewMenuModel(env *Env) MenuModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 80, 14)
	l.Title = "tablechat - WhatsApp conversations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return MenuModel{
		env:          env,
		list:         l,
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchBotsCmd())
}

func (m MenuModel) fetchBotsCmd() tea.Cmd {
	env := m.env
	return func() tea.Msg {
		ctx, cancel := env.requestContext()
		defer cancel()
		bots, err := env.Backend.ListBots(ctx)
		return botsFetchedMsg{bots: bots, err: err}
	}
}

func menuItems(bots []models.Bot) []list.Item {
	items := make([]list.Item, 0, len(bots)+1)
	for i := range bots {
		bot := bots[i]
		desc := bot.PhoneNumber
		if bot.Restaurant != "" {
			desc = fmt.Sprintf("%s • %s", bot.Restaurant, bot.PhoneNumber)
		}
		items = append(items, menuItem{title: "💬 " + botTitle(bot), desc: desc, bot: &bot})
	}
	items = append(items, menuItem{title: "👥 Contacts", desc: "Name your customers", contacts: true})
	return items
}

// open switches to the console of bot, sized to the current window.
func (m MenuModel) open(next tea.Model) (tea.Model, tea.Cmd) {
	updated, _ := next.Update(tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight})
	return updated, updated.Init()
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case botsFetchedMsg:
		m.loading = false
		m.err = msg.err
		m.list.SetItems(menuItems(msg.bots))
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

		if msg.String() == "r" && !m.loading {
			m.loading = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.fetchBotsCmd())
		}

		if msg.String() == "enter" {
			selectedItem, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}

			if selectedItem.bot != nil {
				return m.open(NewConsoleModel(m.env, *selectedItem.bot))
			} else if selectedItem.contacts {
				return m.open(NewContactsListModel(m.env))
			}
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m MenuModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading bots...\n", m.spinner.View())
	}

	s := ""
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
	}
	s += m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: select • r: refresh • q: quit")
	return s
}
