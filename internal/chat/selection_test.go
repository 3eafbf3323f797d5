package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_MobileHidesSidebarOnSelect(t *testing.T) {
	s := NewSelection(true)
	assert.True(t, s.SidebarVisible())

	s.Select("c1", "+49 151 0000000")
	assert.False(t, s.SidebarVisible())
	assert.Equal(t, "c1", s.ClientID())
	assert.Equal(t, "+49 151 0000000", s.Label())

	s.Select("c2", "Anna")
	assert.False(t, s.SidebarVisible())

	s.Clear()
	assert.True(t, s.SidebarVisible())
	assert.False(t, s.HasSelection())
	assert.Empty(t, s.Label())
}

func TestSelection_DesktopAlwaysShowsSidebar(t *testing.T) {
	s := NewSelection(false)

	s.Select("c1", "Anna")
	assert.True(t, s.SidebarVisible())

	s.SetSidebarVisible(false)
	assert.True(t, s.SidebarVisible())

	s.Clear()
	assert.True(t, s.SidebarVisible())
}

func TestSelection_DeviceModeChangeReevaluates(t *testing.T) {
	s := NewSelection(false)
	s.Select("c1", "Anna")

	s.SetMobile(true)
	assert.False(t, s.SidebarVisible())

	s.SetMobile(false)
	assert.True(t, s.SidebarVisible())
}

func TestSelection_MobileManualToggle(t *testing.T) {
	s := NewSelection(true)
	s.Select("c1", "Anna")

	s.SetSidebarVisible(true)
	assert.True(t, s.SidebarVisible())
	assert.Equal(t, "c1", s.ClientID())
}

func TestSelection_Relabel(t *testing.T) {
	s := NewSelection(false)
	s.Relabel("ignored")
	assert.Empty(t, s.Label())

	s.Select("c1", "+4915100000")
	s.Relabel("Anna")
	assert.Equal(t, "Anna", s.Label())
}
