package format

import (
	"fmt"
	"path"
	"strings"
)

const previewLimit = 20

// Preview shortens a last-message preview for the conversation list.
func (l Locale) Preview(s string) string {
	if s == "" {
		return l.text("no_messages")
	}
	runes := []rune(s)
	if len(runes) > previewLimit {
		return fmt.Sprintf(l.text("preview"), string(runes[:previewLimit]))
	}
	return s
}

// MediaLink is how an attachment is shown in the chat pane.
type MediaLink struct {
	Label string
	URL   string
	PDF   bool
}

// Media describes the attachment at url. PDFs are labelled with their
// filename, abridged to the first 6 and last 8 characters past 15; every
// other attachment gets a generic label.
func (l Locale) Media(url string) MediaLink {
	if !strings.HasSuffix(strings.ToLower(url), ".pdf") {
		return MediaLink{Label: l.text("view_file"), URL: url}
	}
	return MediaLink{Label: ShortFilename(path.Base(url)), URL: url, PDF: true}
}

func ShortFilename(name string) string {
	runes := []rune(name)
	if len(runes) <= 15 {
		return name
	}
	return string(runes[:6]) + "..." + string(runes[len(runes)-8:])
}
