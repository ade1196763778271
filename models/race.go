package models

import "time"

// RaceStatus представляет статусы гонки, соответствующие ENUM в БД.
type RaceStatus string

const (
	RaceStatusScheduled RaceStatus = "scheduled"
	RaceStatusOngoing   RaceStatus = "ongoing"
	RaceStatusCompleted RaceStatus = "completed"
)

// Race — один зачет на одном этапе.
type Race struct {
	ID        int        `json:"id" db:"id"`
	EventID   int        `json:"event_id" db:"event_id"`
	ContestID int        `json:"contest_id" db:"contest_id"`
	StartTime *string    `json:"start_time,omitempty" db:"start_time"`
	Status    RaceStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`

	Event   *Event   `json:"event,omitempty" db:"-"`
	Contest *Contest `json:"contest,omitempty" db:"-"`
}
