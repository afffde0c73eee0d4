package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultChatTitle is the placeholder title of a fresh or cleared thread.
const DefaultChatTitle = "New Conversation"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Part struct {
	Text string `json:"text"`
}

// Turn is one entry of a conversation history, tagged with who produced it.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type Chat struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string         `gorm:"size:255;not null;default:'New Conversation'" json:"title"`
	History   datatypes.JSON `gorm:"type:jsonb;not null" json:"history"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if len(c.History) == 0 {
		c.History = datatypes.JSON("[]")
	}
	return nil
}

// Turns decodes the stored history into its ordered turns.
func (c *Chat) Turns() ([]Turn, error) {
	var turns []Turn
	if len(c.History) == 0 {
		return turns, nil
	}
	if err := json.Unmarshal(c.History, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// SetTurns replaces the stored history with the given ordered turns.
func (c *Chat) SetTurns(turns []Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	c.History = datatypes.JSON(raw)
	return nil
}
