package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is the shared base of every entity: a sortable, time-ordered string id
// (UUIDv7) plus created/updated timestamps.
type Model struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id.String()
	}
	return nil
}

// Attachment is the single tagged shape used for every file/link reference
// (contract attachments, task results, addendum signed files, ...).
type Attachment struct {
	Kind     string `json:"kind"` // FILE | LINK
	Type     string `json:"type,omitempty"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`
	PublicID string `json:"publicId,omitempty"`
}

const (
	AttachmentKindFile = "FILE"
	AttachmentKindLink = "LINK"

	AttachmentTypeProposalContract = "PROPOSAL_CONTRACT"
	AttachmentTypeSignedContract   = "SIGNED_CONTRACT"
)
