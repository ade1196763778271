package models

import "time"

// ParticipantStatus — информационное зеркало статуса; авторитетный
// статус живет на Participation.
type ParticipantStatus string

const (
	ParticipantStatusRegistered ParticipantStatus = "registered"
	ParticipantStatusStarted    ParticipantStatus = "started"
	ParticipantStatusFinished   ParticipantStatus = "finished"
	ParticipantStatusDNF        ParticipantStatus = "dnf"
	ParticipantStatusDNS        ParticipantStatus = "dns"
)

type Participant struct {
	ID            int               `json:"id" db:"id"`
	ContestID     int               `json:"contest_id" db:"contest_id"`
	Name          string            `json:"name" db:"name"`
	BibNumber     int               `json:"bib_number" db:"bib_number"`
	BirthYear     int               `json:"birth_year" db:"birth_year"`
	Gender        string            `json:"gender" db:"gender"`
	Club          *string           `json:"club,omitempty" db:"club"`
	Team          *string           `json:"team,omitempty" db:"team"`
	LicenseNumber *string           `json:"license_number,omitempty" db:"license_number"`
	Status        ParticipantStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}
