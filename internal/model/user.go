package model

import "time"

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:80;not null;uniqueIndex" json:"username"`
	Email    string `gorm:"size:120;not null;uniqueIndex" json:"email"`
}

type UserEventType string

const (
	UserCreated UserEventType = "user.created"
	UserUpdated UserEventType = "user.updated"
	UserDeleted UserEventType = "user.deleted"
)

// UserEvent is published to the broker after a user mutation commits.
type UserEvent struct {
	Type       UserEventType `json:"type"`
	User       User          `json:"user"`
	OccurredAt time.Time     `json:"occurred_at"`
}
