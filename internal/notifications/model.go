package notifications

import "time"

// Record is one durable mention notification. Logical identity for
// deduplication is the (NoteID, RecipientID) pair, not the record id: the
// same logical notification can be observed twice, once via fetch-on-load
// and once via live push, and the two must collapse to one entry.
type Record struct {
	ID            string    `gorm:"column:notification_id;primaryKey;size:190;not null" json:"id"`
	NoteID        string    `gorm:"column:note_id;size:190;not null;uniqueIndex:idx_notifications_note_recipient,priority:1" json:"noteId"`
	CandidateID   string    `gorm:"column:candidate_id;size:190;not null;index" json:"candidateId"`
	CandidateName string    `gorm:"column:candidate_name;size:320;not null" json:"candidateName"`
	RecipientID   string    `gorm:"column:recipient_id;size:190;not null;uniqueIndex:idx_notifications_note_recipient,priority:2;index:idx_notifications_recipient_created,priority:1" json:"recipientId"`
	Message       string    `gorm:"column:message;type:text;not null" json:"message"`
	IsRead        bool      `gorm:"column:is_read;not null;default:false" json:"isRead"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index:idx_notifications_recipient_created,priority:2" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Record) TableName() string {
	return "notifications"
}

// Identity is the logical dedup key for a record.
type Identity struct {
	NoteID      string
	RecipientID string
}

// IdentityOf returns the logical identity of a record.
func IdentityOf(record Record) Identity {
	return Identity{NoteID: record.NoteID, RecipientID: record.RecipientID}
}
