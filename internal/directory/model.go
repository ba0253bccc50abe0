package directory

import "time"

// User is a member of the reviewer directory. DisplayName is the handle a
// mention tag resolves against and is assumed unique within an active
// snapshot; ties are broken by directory order at resolution time.
type User struct {
	ID           string    `gorm:"column:user_id;primaryKey;size:190;not null" json:"id"`
	DisplayName  string    `gorm:"column:display_name;size:190;not null;index" json:"name"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:190;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "directory_users"
}
