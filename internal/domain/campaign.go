package domain

import (
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
)

// Campaign belongs to the user who created it and is only visible to them.
type Campaign struct {
	ID             int                         `gorm:"primaryKey" json:"id"`
	UserID         string                      `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Name           string                      `gorm:"type:varchar(255);not null" json:"name"`
	Description    string                      `gorm:"type:text" json:"description"`
	ExtraFieldKeys datatypes.JSONSlice[string] `json:"extra_field_keys"`
	Contacts       []Contact                   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

type Contact struct {
	ID          int                                   `gorm:"primaryKey" json:"id"`
	CampaignID  int                                   `gorm:"not null;uniqueIndex:idx_contacts_campaign_phone" json:"campaign_id"`
	Name        string                                `gorm:"type:varchar(255);not null" json:"name"`
	Phone       string                                `gorm:"type:varchar(32);not null;uniqueIndex:idx_contacts_campaign_phone" json:"phone"`
	ExtraFields datatypes.JSONType[map[string]string] `json:"extra_fields"`
	CreatedAt   time.Time                             `json:"created_at"`
	UpdatedAt   time.Time                             `json:"updated_at"`
}

// Fields returns the contact's extra fields, never nil.
func (c *Contact) Fields() map[string]string {
	fields := c.ExtraFields.Data()
	if fields == nil {
		return map[string]string{}
	}
	return fields
}

// ContactInput is the caller supplied data of a contact to be inserted or updated.
type ContactInput struct {
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	ExtraFields map[string]string `json:"extra_fields"`
}

type InsertStatus string

const (
	StatusInserted  InsertStatus = "inserted"
	StatusUpdated   InsertStatus = "updated"
	StatusDuplicate InsertStatus = "duplicate"
)

type InsertResult struct {
	Status    InsertStatus `json:"status"`
	ContactID int          `json:"contact_id,omitempty"`
	Phone     string       `json:"phone"`
}

type UpdateResult struct {
	Status InsertStatus `json:"status"`
	Phone  string       `json:"phone,omitempty"`
}

type ImportResult struct {
	InsertedIDs []int    `json:"inserted_ids"`
	Duplicates  []string `json:"duplicates"`
}

type ImportEstimate struct {
	NewCount   int `json:"new_count"`
	Duplicates int `json:"duplicates"`
}

// NormalizePhone strips every whitespace rune from a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// NormalizeFieldKeys trims and lowercases keys, dropping empty and repeated ones.
func NormalizeFieldKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// NormalizeFields lowercases the keys of a contact's extra fields.
func NormalizeFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
