package db

import "time"

// APIKey maps gateway.api_keys. The raw key never touches the database,
// only its SHA-256 fingerprint.
type APIKey struct {
	KeyID      int64      `gorm:"column:key_id;primaryKey;autoIncrement"`
	KeyHash    string     `gorm:"column:key_hash;type:text;not null;unique"`
	Subject    string     `gorm:"column:subject;type:text;not null"`
	Disabled   bool       `gorm:"column:disabled;not null;default:false"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastUsedAt *time.Time `gorm:"column:last_used_at;type:timestamptz"`
}

func (APIKey) TableName() string { return "gateway.api_keys" }
