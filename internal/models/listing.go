// internal/models/listing.go
package models

import "time"

// ListingStatus is the listing lifecycle state.
type ListingStatus string

const (
	ListingActive   ListingStatus = "Active"
	ListingArchived ListingStatus = "Archived"
)

// Listing is the match subject for subscription dispatch. It is owned by
// the marketplace CRUD layer; this subsystem only reads it.
type Listing struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	CategoryID  *string       `json:"categoryId,omitempty"`
	Tags        []string      `json:"tags"`
	Title       string        `json:"title"`
	Type        string        `json:"type"`
	Location    string        `json:"location"`
	Description string        `json:"description,omitempty"`
	Price       int64         `json:"price"`
	Area        int64         `json:"area"`
	Photos      []string      `json:"photos"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// FirstPhoto returns the image reference used for chat notifications,
// or "" when the listing has no photos.
func (l *Listing) FirstPhoto() string {
	if len(l.Photos) == 0 {
		return ""
	}
	return l.Photos[0]
}
