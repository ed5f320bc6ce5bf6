package models

import "time"

// Word represents a vocabulary item in the catalog. The catalog is
// populated externally; this service only reads it.
type Word struct {
	ID          int64     `json:"id" db:"id"`
	Word        string    `json:"word" db:"word"`
	Translation string    `json:"translation" db:"translation"`
	Context     string    `json:"context" db:"context"` // Optional example sentence
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
