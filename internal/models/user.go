package models

// User is an account in the identity store.
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string `gorm:"type:varchar(254);not null;index" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
}

// TableName specifies the table name for User.
func (User) TableName() string {
	return "users"
}

// UserSummary is the public projection returned by user search.
type UserSummary struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Summary projects the user onto its public fields.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Username: u.Username}
}
