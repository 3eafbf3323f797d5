package chat

// Selection is the state shared by the conversation list and the chat pane:
// which conversation is open, whether the terminal is narrow ("mobile") and
// whether the list panel is showing.
//
// Desktop always shows the list. On mobile the list hides while a
// conversation is open and comes back when the selection is cleared.
type Selection struct {
	clientID       string
	label          string
	mobile         bool
	sidebarVisible bool
}

func NewSelection(mobile bool) *Selection {
	s := &Selection{mobile: mobile}
	s.apply()
	return s
}

func (s *Selection) Select(clientID, label string) {
	s.clientID = clientID
	s.label = label
	s.apply()
}

// Clear is the back action.
func (s *Selection) Clear() {
	s.clientID = ""
	s.label = ""
	s.apply()
}

// Relabel changes the display label of the open conversation, e.g. after the
// counterpart was added to the contact book.
func (s *Selection) Relabel(label string) {
	if s.clientID != "" {
		s.label = label
	}
}

func (s *Selection) SetMobile(mobile bool) {
	if s.mobile == mobile {
		return
	}
	s.mobile = mobile
	s.apply()
}

// SetSidebarVisible toggles the list panel. The list cannot be hidden on
// desktop.
func (s *Selection) SetSidebarVisible(visible bool) {
	if !s.mobile {
		s.sidebarVisible = true
		return
	}
	s.sidebarVisible = visible
}

func (s *Selection) apply() {
	switch {
	case !s.mobile:
		s.sidebarVisible = true
	case s.clientID != "":
		s.sidebarVisible = false
	default:
		s.sidebarVisible = true
	}
}

func (s *Selection) ClientID() string     { return s.clientID }
func (s *Selection) Label() string        { return s.label }
func (s *Selection) HasSelection() bool   { return s.clientID != "" }
func (s *Selection) Mobile() bool         { return s.mobile }
func (s *Selection) SidebarVisible() bool { return s.sidebarVisible }
