package models

// Notification is a persisted fire-and-forget message to a user. Delivery
// failures never abort the mutation that produced them.
type Notification struct {
	Model
	Title             string `gorm:"size:255" json:"title"`
	Content           string `gorm:"type:text" json:"content"`
	Type              string `gorm:"size:64" json:"type"`
	RecipientID       string `gorm:"size:36;index" json:"recipientId"`
	Recipient         *User  `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	RelatedEntityID   string `gorm:"size:36" json:"relatedEntityId,omitempty"`
	RelatedEntityType string `gorm:"size:64" json:"relatedEntityType,omitempty"`
	Link              string `gorm:"size:500" json:"link,omitempty"`
	IsRead            bool   `gorm:"default:false" json:"isRead"`
}
