package model

// Holiday is a read-only calendar annotation.
type Holiday struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Date      string `json:"date" db:"date"` // YYYY-MM-DD
	Year      int    `json:"year" db:"year"`
	Recurring bool   `json:"recurring" db:"recurring"`
}
