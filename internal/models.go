package internal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiKey is a per-tenant credential. The secret token in Key is generated
// once at issuance and never mutated afterwards.
type ApiKey struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Key       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`

	Links []Link `gorm:"foreignKey:ApiKeyID" json:"-"`
}

func (k *ApiKey) BeforeCreate(*gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Link maps a short code to its destination URL. The unique index on
// ShortCode is the final arbiter for code allocation races.
type Link struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	ShortCode   string    `gorm:"type:varchar(5);uniqueIndex;not null" json:"shortCode"`
	OriginalURL string    `gorm:"type:text;not null" json:"originalUrl"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	ApiKeyID    string    `gorm:"type:uuid;index;not null" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (l *Link) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
