package model

import "time"

// Like records that UserID (an external identity) liked PaletteID.
// The pair is unique.
type Like struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	PaletteID string    `json:"paletteId" db:"palette_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
