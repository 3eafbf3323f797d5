// Package format holds the display rules shared by the conversation list,
// the chat pane and the headless commands.
package format

import (
	"fmt"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(supported)

// Locale selects the wording and date layout of rendered labels.
type Locale struct {
	tag language.Tag
}

var English = Locale{tag: language.English}

// ParseLocale accepts any BCP 47 tag and falls back to English for languages
// without translations.
func ParseLocale(s string) (Locale, error) {
	if s == "" {
		return English, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return English, fmt.Errorf("invalid locale %q: %w", s, err)
	}
	_, idx, _ := matcher.Match(tag)
	return Locale{tag: supported[idx]}, nil
}

func MustLocale(s string) Locale {
	l, err := ParseLocale(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Locale) German() bool {
	base, _ := l.tag.Base()
	german, _ := language.German.Base()
	return base == german
}

func (l Locale) String() string {
	if l.tag == (language.Tag{}) {
		return language.English.String()
	}
	return l.tag.String()
}

func (l Locale) dateLayout() string {
	if l.German() {
		return "02.01.2006"
	}
	return "Jan 2, 2006"
}

func (l Locale) text(key string) string {
	if l.German() {
		if s, ok := german[key]; ok {
			return s
		}
	}
	return english[key]
}

var english = map[string]string{
	"no_messages": "No messages",
	"preview":     "%s...",
	"view_file":   "View file",
	"unknown":     "unknown",
}

var german = map[string]string{
	"no_messages": "Keine Nachrichten",
	"preview":     "%s…",
	"view_file":   "Datei ansehen",
	"unknown":     "unbekannt",
}
