package contacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saravenpi/tablechat/internal/models"
)

// Contact names one customer. Phone numbers are stored as typed and
// normalized for lookups.
type Contact struct {
	Name         string   `yaml:"name"`
	PhoneNumbers []string `yaml:"phone_numbers,omitempty"`
	Notes        string   `yaml:"notes,omitempty"`
}

// Book is a directory of YAML contact files, one per contact.
type Book struct {
	dir      string
	cacheTTL time.Duration

	mu        sync.RWMutex
	cache     []Contact
	lookup    map[string]string
	cacheTime time.Time
}

const defaultCacheTTL = 30 * time.Second

func NewBook(dir string) *Book {
	return &Book{dir: dir, cacheTTL: defaultCacheTTL}
}

func (b *Book) Dir() string {
	return b.dir
}

// sanitizeFilename converts a contact name to a safe filename.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(name)
}

func (b *Book) path(name string) string {
	return filepath.Join(b.dir, sanitizeFilename(name)+".yml")
}

// Save writes a contact, replacing any contact with the same name.
func (b *Book) Save(contact Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		return fmt.Errorf("contact name cannot be empty")
	}

	phones := contact.PhoneNumbers[:0:0]
	for _, p := range contact.PhoneNumbers {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	contact.PhoneNumbers = phones

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create contacts directory: %w", err)
	}

	data, err := yaml.Marshal(&contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}

	if err := os.WriteFile(b.path(contact.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write contact file: %w", err)
	}

	b.Invalidate()
	return nil
}

// Rename saves contact and removes the file stored under oldName when the
// name changed.
func (b *Book) Rename(oldName string, contact Contact) error {
	if err := b.Save(contact); err != nil {
		return err
	}
	if oldName != "" && sanitizeFilename(oldName) != sanitizeFilename(contact.Name) {
		if err := b.Delete(oldName); err != nil {
			return err
		}
	}
	return nil
}

// Load reads one contact by name.
func (b *Book) Load(name string) (*Contact, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("contact not found: %s", name)
		}
		return nil, fmt.Errorf("failed to read contact file: %w", err)
	}

	var contact Contact
	if err := yaml.Unmarshal(data, &contact); err != nil {
		return nil, fmt.Errorf("failed to parse contact file: %w", err)
	}
	return &contact, nil
}

// Delete removes a contact's file.
func (b *Book) Delete(name string) error {
	if err := os.Remove(b.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("contact not found: %s", name)
		}
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	b.Invalidate()
	return nil
}

// List returns all contacts sorted by name. Results are cached for the
// book's TTL; unreadable files are skipped.
func (b *Book) List() ([]Contact, error) {
	b.mu.RLock()
	if b.fresh() {
		defer b.mu.RUnlock()
		return b.cache, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fresh() {
		return b.cache, nil
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create contacts directory: %w", err)
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts directory: %w", err)
	}

	contacts := []Contact{}
	lookup := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(b.dir, entry.Name()))
		if err != nil {
			continue
		}

		var contact Contact
		if err := yaml.Unmarshal(data, &contact); err != nil || contact.Name == "" {
			continue
		}

		contacts = append(contacts, contact)
		for _, phone := range contact.PhoneNumbers {
			if key := NormalizePhone(phone); key != "" {
				lookup[key] = contact.Name
			}
		}
	}

	sort.Slice(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].Name) < strings.ToLower(contacts[j].Name)
	})

	b.cache = contacts
	b.lookup = lookup
	b.cacheTime = time.Now()
	return contacts, nil
}

func (b *Book) fresh() bool {
	return b.cache != nil && time.Since(b.cacheTime) < b.cacheTTL
}

// Invalidate forces the next lookup to re-read the directory.
func (b *Book) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheTime = time.Time{}
}

// NameFor returns the contact name stored for a phone number, or "".
func (b *Book) NameFor(phone string) string {
	key := NormalizePhone(phone)
	if key == "" {
		return ""
	}
	if _, err := b.List(); err != nil {
		return ""
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lookup[key]
}

// Label picks the display label of a conversation counterpart: the name
// saved in the book, then the name WhatsApp reported, then the phone
// number. A nil book only falls back.
func (b *Book) Label(c models.Client) string {
	if b != nil {
		if name := b.NameFor(c.PhoneNumber); name != "" {
			return name
		}
	}
	if c.Name != "" {
		return c.Name
	}
	if c.PhoneNumber != "" {
		return c.PhoneNumber
	}
	return c.UID
}

// NormalizePhone reduces a WhatsApp handle or phone number to "+digits" so
// "whatsapp:+49 151 234", "0049151234" and "+49-151-234" compare equal.
// Numbers without a country prefix keep their bare digits.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "whatsapp:")

	// JIDs ("4915123@s.whatsapp.net") always carry the country code.
	plus := false
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
		plus = true
	}

	var digits strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			plus = true
		}
	}

	out := digits.String()
	if out == "" {
		return ""
	}
	if !plus && strings.HasPrefix(out, "00") {
		out = out[2:]
		plus = true
	}
	if plus {
		return "+" + out
	}
	return out
}
