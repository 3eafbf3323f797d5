package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/saravenpi/tablechat/internal/contacts"
)

type contactItem struct {
	contact contacts.Contact
}

func (i contactItem) FilterValue() string {
	return i.contact.Name + " " + strings.Join(i.contact.PhoneNumbers, " ")
}
func (i contactItem) Title() string { return i.contact.Name }
func (i contactItem) Description() string {
	desc := strings.Join(i.contact.PhoneNumbers, ", ")
	if i.contact.Notes != "" {
		if desc != "" {
			desc += " • "
		}
		desc += i.contact.Notes
	}
	return desc
}

type contactsLoadedMsg struct {
	contacts []contacts.Contact
	err      error
}

type contactDeletedMsg struct {
	name string
	err  error
}

// ContactsListModel browses the local contact book that names customers
// in the conversation list.
type ContactsListModel struct {
	env             *Env
	list            list.Model
	contacts        []contacts.Contact
	loading         bool
	err             error
	windowWidth     int
	windowHeight    int
	confirmDelete   bool
	contactToDelete *contacts.Contact
}

func NewContactsListModel(env *Env) ContactsListModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Contacts"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return ContactsListModel{
		env:          env,
		list:         l,
		loading:      true,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m ContactsListModel) Init() tea.Cmd {
	return m.loadContactsCmd()
}

func (m ContactsListModel) loadContactsCmd() tea.Cmd {
	book := m.env.Contacts
	return func() tea.Msg {
		all, err := book.List()
		return contactsLoadedMsg{contacts: all, err: err}
	}
}

func (m ContactsListModel) deleteCmd(name string) tea.Cmd {
	book := m.env.Contacts
	return func() tea.Msg {
		return contactDeletedMsg{name: name, err: book.Delete(name)}
	}
}

func (m ContactsListModel) openForm(draft *contactDraft) (tea.Model, tea.Cmd) {
	form := NewContactFormModel(m.env, draft, m)
	updated, _ := form.Update(tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight})
	form = updated.(ContactFormModel)
	return form, form.Init()
}

func (m ContactsListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case contactsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.contacts = msg.contacts
		items := make([]list.Item, len(m.contacts))
		for i, contact := range m.contacts {
			items[i] = contactItem{contact: contact}
		}
		m.list.SetItems(items)
		m.list.Title = fmt.Sprintf("Contacts - %d total", len(m.contacts))
		return m, nil

	case contactSavedMsg:
		m.loading = true
		return m, m.loadContactsCmd()

	case contactDeletedMsg:
		if msg.err != nil {
			m.env.log().Warn("failed to delete contact", zap.String("name", msg.name), zap.Error(msg.err))
			m.err = msg.err
			return m, nil
		}
		m.loading = true
		return m, m.loadContactsCmd()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.confirmDelete {
			switch msg.String() {
			case "y", "Y":
				name := m.contactToDelete.Name
				m.confirmDelete = false
				m.contactToDelete = nil
				return m, m.deleteCmd(name)
			case "n", "N", "esc":
				m.confirmDelete = false
				m.contactToDelete = nil
			}
			return m, nil
		}

		if m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "esc", "q":
			menu := NewMenuModel(m.env)
			updated, _ := menu.Update(tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight})
			menu = updated.(MenuModel)
			return menu, menu.Init()

		case "n", "a":
			return m.openForm(nil)

		case "r":
			m.env.Contacts.Invalidate()
			m.loading = true
			return m, m.loadContactsCmd()

		case "enter":
			if item, ok := m.list.SelectedItem().(contactItem); ok {
				return m.openForm(draftFromContact(item.contact))
			}
			return m, nil

		case "d", "delete":
			if item, ok := m.list.SelectedItem().(contactItem); ok {
				contact := item.contact
				m.confirmDelete = true
				m.contactToDelete = &contact
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ContactsListModel) View() string {
	if m.confirmDelete && m.contactToDelete != nil {
		s := titleStyle.Render("Delete Contact") + "\n\n"
		s += normalStyle.Render(fmt.Sprintf("Delete '%s'? Their conversations will show the WhatsApp name again.", m.contactToDelete.Name)) + "\n\n"
		s += helpStyle.Render("y: confirm delete • n/esc: cancel")
		return s
	}

	if m.loading {
		return "\n  Loading contacts...\n"
	}

	if m.err != nil {
		s := titleStyle.Render("Contacts") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back to menu")
		return s
	}

	if len(m.contacts) == 0 {
		s := titleStyle.Render("Contacts") + "\n\n"
		s += normalStyle.Render("  No contacts yet. Press 'n' to add one.") + "\n"
		s += "\n" + helpStyle.Render("n: new contact • esc: back")
		return s
	}

	s := m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: edit • n: new • d: delete • /: search • r: refresh • esc: back")
	return s
}
