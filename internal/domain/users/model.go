package users

import (
	"time"
)

type User struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Password  *string `json:"-"`
	Phone     string  `json:"phone"`
	Role      string  `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
