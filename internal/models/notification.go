// internal/models/notification.go
package models

import "time"

// NotificationStatus is the delivery lifecycle of a notification record.
// SENT means accepted for processing; DELIVERED and FAILED are terminal.
type NotificationStatus string

const (
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s NotificationStatus) IsTerminal() bool {
	return s == NotificationDelivered || s == NotificationFailed
}

// Notification is one delivery attempt record for one recipient and one
// subscription. Created only by the dispatch orchestrator.
type Notification struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	SubscriptionID string             `json:"subscriptionId"`
	Message        string             `json:"message"`
	Status         NotificationStatus `json:"status"`
	FailureReason  string             `json:"failureReason,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	SentAt         *time.Time         `json:"sentAt,omitempty"` // set only on DELIVERED
}
