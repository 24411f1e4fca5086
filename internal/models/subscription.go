// internal/models/subscription.go
package models

import "time"

// Transport is the delivery channel for a subscription's notifications.
type Transport string

const (
	TransportEmail Transport = "EMAIL"
	TransportChat  Transport = "CHAT"
)

// FilterSet is a buyer's saved search. All fields are optional; a nil/empty
// field imposes no constraint. Fields are AND-combined, except Tags which
// matches when at least one tag intersects the listing's tags.
type FilterSet struct {
	Category *string  `json:"category,omitempty"`
	Type     *string  `json:"type,omitempty"`
	MinPrice *int64   `json:"minPrice,omitempty"`
	MaxPrice *int64   `json:"maxPrice,omitempty"`
	MinArea  *int64   `json:"minArea,omitempty"`
	MaxArea  *int64   `json:"maxArea,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Subscription is a buyer's saved search plus chosen transport.
type Subscription struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	Filters   FilterSet `json:"filters"`
	Transport Transport `json:"transport"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
