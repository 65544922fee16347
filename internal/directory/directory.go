package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry pairs a fax phone number with the mailbox it bridges to.
type Entry struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// Directory is the read-only phone/email mapping loaded once at startup.
// Lookups are O(1) in either direction; email comparison is case-insensitive.
type Directory struct {
	byPhone map[string]string
	byEmail map[string]string
}

// Load reads a JSON array of entries from path.
func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}

	return New(entries), nil
}

// New builds a Directory from entries. Later duplicates win.
func New(entries []Entry) *Directory {
	d := &Directory{
		byPhone: make(map[string]string, len(entries)),
		byEmail: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		d.byPhone[e.PhoneNumber] = e.Email
		d.byEmail[strings.ToLower(e.Email)] = e.PhoneNumber
	}
	return d
}

// EmailFor resolves a phone number to its mailbox.
func (d *Directory) EmailFor(phoneNumber string) (string, bool) {
	email, ok := d.byPhone[phoneNumber]
	return email, ok
}

// PhoneFor resolves a mailbox to its phone number.
func (d *Directory) PhoneFor(email string) (string, bool) {
	phone, ok := d.byEmail[strings.ToLower(email)]
	return phone, ok
}

// Len returns the number of loaded pairings.
func (d *Directory) Len() int { return len(d.byPhone) }
