package candidates

import "time"

// Candidate is the shared entity reviewers annotate. The collaboration
// engine treats it as a thin record: a name for notification copy and an
// identifier that scopes note threads and rooms.
type Candidate struct {
	ID        string    `gorm:"column:candidate_id;primaryKey;size:190;not null" json:"id"`
	Name      string    `gorm:"column:name;size:320;not null" json:"name"`
	Email     string    `gorm:"column:email;size:320;not null" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Candidate) TableName() string {
	return "candidates"
}
