package models

import "time"

// ImportStatus отражает состояние импорта стартовых списков для этапа.
type ImportStatus string

const (
	ImportStatusNone    ImportStatus = "none"
	ImportStatusPending ImportStatus = "pending"
	ImportStatusDone    ImportStatus = "done"
)

// Event представляет этап серии: дата, место, организующий клуб.
type Event struct {
	ID              int           `json:"id" db:"id"`
	SeriesID        int           `json:"series_id" db:"series_id"`
	Name            string        `json:"name" db:"name"`
	Date            time.Time     `json:"date" db:"date"`
	Location        string        `json:"location" db:"location"`
	Club            string        `json:"club" db:"club"`
	RegistrationURL *string       `json:"registration_url,omitempty" db:"registration_url"`
	ImportStatus    *ImportStatus `json:"import_status,omitempty" db:"import_status"`
	LastImportAt    *time.Time    `json:"last_import_at,omitempty" db:"last_import_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`

	Races []Race `json:"races,omitempty" db:"-"`
}
