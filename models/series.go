package models

import "time"

// SeriesStatus представляет статусы серии, соответствующие ENUM в БД.
type SeriesStatus string

const (
	SeriesStatusScheduled SeriesStatus = "scheduled"
	SeriesStatusOngoing   SeriesStatus = "ongoing"
	SeriesStatusFinished  SeriesStatus = "finished"
)

// Series представляет сезонную серию гонок.
type Series struct {
	ID              int          `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	Season          string       `json:"season" db:"season"`
	Status          SeriesStatus `json:"status" db:"status"`
	Description     *string      `json:"description,omitempty" db:"description"`
	ParticipantsURL *string      `json:"participants_url,omitempty" db:"participants_url"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
	LogoKey         *string      `json:"-" db:"logo_key"`
	LogoURL         *string      `json:"logo_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Events   []Event   `json:"events,omitempty" db:"-"`
	Contests []Contest `json:"contests,omitempty" db:"-"`
}
