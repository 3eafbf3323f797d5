package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/tablechat/internal/contacts"
)

// contactSavedMsg is delivered to the screen the form returns to.
type contactSavedMsg struct {
	name string
}

type contactSaveFailedMsg struct {
	err error
}

// contactDraft pre-fills the form. original is the stored name when an
// existing contact is edited.
type contactDraft struct {
	original string
	name     string
	phone    string
	phones   []string
	notes    string
}

func draftFromContact(c contacts.Contact) *contactDraft {
	return &contactDraft{original: c.Name, name: c.Name, phones: c.PhoneNumbers, notes: c.Notes}
}

const (
	fieldName = iota
	fieldPhone1
	fieldPhone2
	fieldPhone3
	fieldNotes
	fieldCount
)

// ContactFormModel adds or edits one contact, then hands control back to
// the screen it was opened from. Everything except key presses is passed
// through to that screen, so a console underneath keeps receiving its
// live feed.
type ContactFormModel struct {
	env          *Env
	draft        *contactDraft
	inputs       []textinput.Model
	focusIndex   int
	back         tea.Model
	err          error
	windowWidth  int
	windowHeight int
}

func NewContactFormModel(env *Env, draft *contactDraft, back tea.Model) ContactFormModel {
	if draft == nil {
		draft = &contactDraft{}
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 50
	}
	inputs[fieldName].Placeholder = "Customer name"
	inputs[fieldName].CharLimit = 100
	for i := fieldPhone1; i <= fieldPhone3; i++ {
		inputs[i].Placeholder = fmt.Sprintf("WhatsApp number %d (e.g. +49 151 2345678)", i)
		inputs[i].CharLimit = 32
	}
	inputs[fieldNotes].Placeholder = "Notes (allergies, favourite table...)"
	inputs[fieldNotes].CharLimit = 200

	inputs[fieldName].SetValue(draft.name)
	phones := draft.phones
	if draft.phone != "" {
		phones = append([]string{draft.phone}, phones...)
	}
	for i, phone := range phones {
		if fieldPhone1+i > fieldPhone3 {
			break
		}
		inputs[fieldPhone1+i].SetValue(phone)
	}
	inputs[fieldNotes].SetValue(draft.notes)
	inputs[fieldName].Focus()

	return ContactFormModel{
		env:    env,
		draft:  draft,
		inputs: inputs,
		back:   back,
	}
}

func (m ContactFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ContactFormModel) leave(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.back == nil {
		list := NewContactsListModel(m.env)
		return list, list.Init()
	}
	return m.back, cmd
}

func (m ContactFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		for i := range m.inputs {
			m.inputs[i].Width = max(msg.Width-20, 20)
		}
		if m.back != nil {
			var cmd tea.Cmd
			m.back, cmd = m.back.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.back != nil {
				return m.back.Update(msg)
			}
			return m, tea.Quit

		case "esc":
			return m.leave(nil)

		case "tab", "shift+tab", "down", "up":
			if msg.String() == "up" || msg.String() == "shift+tab" {
				m.focusIndex = (m.focusIndex - 1 + fieldCount) % fieldCount
			} else {
				m.focusIndex = (m.focusIndex + 1) % fieldCount
			}
			for i := range m.inputs {
				if i == m.focusIndex {
					m.inputs[i].Focus()
				} else {
					m.inputs[i].Blur()
				}
			}
			return m, nil

		case "ctrl+s", "enter":
			return m, m.saveCmd()
		}

		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd

	case contactSavedMsg:
		return m.leave(func() tea.Msg { return msg })

	case contactSaveFailedMsg:
		m.err = msg.err
		return m, nil
	}

	var inputCmd, backCmd tea.Cmd
	m.inputs[m.focusIndex], inputCmd = m.inputs[m.focusIndex].Update(msg)
	if m.back != nil {
		m.back, backCmd = m.back.Update(msg)
	}
	return m, tea.Batch(inputCmd, backCmd)
}

func (m ContactFormModel) saveCmd() tea.Cmd {
	book := m.env.Contacts
	original := m.draft.original
	contact := contacts.Contact{
		Name:  strings.TrimSpace(m.inputs[fieldName].Value()),
		Notes: strings.TrimSpace(m.inputs[fieldNotes].Value()),
	}
	for i := fieldPhone1; i <= fieldPhone3; i++ {
		if phone := strings.TrimSpace(m.inputs[i].Value()); phone != "" {
			contact.PhoneNumbers = append(contact.PhoneNumbers, phone)
		}
	}

	return func() tea.Msg {
		if contact.Name == "" {
			return contactSaveFailedMsg{err: fmt.Errorf("name is required")}
		}
		if len(contact.PhoneNumbers) == 0 {
			return contactSaveFailedMsg{err: fmt.Errorf("at least one phone number is required")}
		}
		if err := book.Rename(original, contact); err != nil {
			return contactSaveFailedMsg{err: err}
		}
		return contactSavedMsg{name: contact.Name}
	}
}

func (m ContactFormModel) View() string {
	var b strings.Builder

	title := "Add Contact"
	if m.draft.original != "" {
		title = "Edit Contact"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	focusedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	blurredStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	labels := []string{"Name (required):", "  Phone 1:", "  Phone 2:", "  Phone 3:", "Notes:"}
	for i, input := range m.inputs {
		if i == fieldPhone1 {
			b.WriteString(inputStyle.Render("WhatsApp numbers:") + "\n")
		}
		style := blurredStyle
		if i == m.focusIndex {
			style = focusedStyle
		}
		b.WriteString(style.Render(labels[i]) + "\n")
		b.WriteString(input.View() + "\n\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("tab/↑↓: navigate • enter/ctrl+s: save • esc: cancel"))
	return b.String()
}
