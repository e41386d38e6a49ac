package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// User is the relational account row, the source of truth for suspension
// state and host origin.
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Username    string `gorm:"type:varchar(128);index:idx_user_name"`
	Host        string `gorm:"type:varchar(256)"` // "" = local account
	IsSuspended bool
	IsSilenced  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string { return "users" }

// MutedWord is one hard-mute entry: either an AND-group of plain substrings
// (every non-empty token must be present) or a "/pattern/flags" literal.
// The profile column stores a mixed JSON array: a string element decodes
// into Pattern and an array element into Words.
type MutedWord struct {
	Words   []string
	Pattern string
}

func (w *MutedWord) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &w.Pattern)
	}
	return json.Unmarshal(b, &w.Words)
}

func (w MutedWord) MarshalJSON() ([]byte, error) {
	if w.Pattern != "" {
		return json.Marshal(w.Pattern)
	}
	return json.Marshal(w.Words)
}

// MutedWords is a JSON text column of MutedWord entries.
type MutedWords []MutedWord

func (m MutedWords) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *MutedWords) Scan(src any) error {
	return scanJSON(src, m)
}

// StringList is a JSON text column of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// UserProfile carries per-user feed preferences read by the filter pipeline.
type UserProfile struct {
	UserID         string     `gorm:"primaryKey;type:varchar(36)"`
	MutedWords     MutedWords `gorm:"type:text"`
	MutedInstances StringList `gorm:"type:text"`
	UpdatedAt      time.Time
}

func (UserProfile) TableName() string { return "user_profiles" }

var ErrProfileNotFound = errors.New("user profile not found")
