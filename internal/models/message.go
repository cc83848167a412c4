package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is immutable once stored. Attachment data is inline base64 for
// small payloads; larger ones are offloaded to blob storage and referenced
// through AttachmentKey.
type Message struct {
	gorm.Model
	SenderID           uint      `json:"senderId" gorm:"column:sender_id;not null;index"`
	ReceiverID         uint      `json:"receiverId" gorm:"column:receiver_id;not null;index"`
	Body               string    `json:"body" gorm:"column:body;not null"`
	SentAt             time.Time `json:"sentAt" gorm:"column:sent_at;not null"`
	AttachmentFilename string    `json:"attachmentFilename,omitempty" gorm:"column:attachment_filename"`
	AttachmentMime     string    `json:"attachmentMime,omitempty" gorm:"column:attachment_mime"`
	AttachmentData     string    `json:"attachmentData,omitempty" gorm:"column:attachment_data"`
	AttachmentKey      string    `json:"attachmentKey,omitempty" gorm:"column:attachment_key"`
	Sender             *User     `json:"-" gorm:"foreignKey:SenderID"`
	Receiver           *User     `json:"-" gorm:"foreignKey:ReceiverID"`
}

// TableName specifies the table name
func (Message) TableName() string {
	return "messages"
}
