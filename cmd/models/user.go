package models

import (
	"time"
)

// User owns subscriptions. Only the demo identity exists today, but the row is
// kept so that subscriptions.user_id is a real foreign key.
type User struct {
	ID        string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
