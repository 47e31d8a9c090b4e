package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an immutable inbox entry for one recipient.
type Notification struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Type         string    `db:"type" json:"type"`
	NotifiableID uuid.UUID `db:"notifiable_id" json:"notifiable_id"`
	Data         JSONMap   `db:"data" json:"data"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NotificationView is what the inbox endpoint returns.
type NotificationView struct {
	Notification
	TimeAgo string `json:"time_ago"`
}
