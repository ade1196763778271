package models

import (
	"fmt"
	"time"
)

// Contest представляет категорию (зачет) внутри серии.
type Contest struct {
	ID                  int       `json:"id" db:"id"`
	SeriesID            int       `json:"series_id" db:"series_id"`
	Name                string    `json:"name" db:"name"`
	Gender              *string   `json:"gender,omitempty" db:"gender"`
	BirthYearFrom       *int      `json:"birth_year_from,omitempty" db:"birth_year_from"`
	BirthYearTo         *int      `json:"birth_year_to,omitempty" db:"birth_year_to"`
	ParticipationPoints int       `json:"participation_points" db:"participation_points"`
	Group               *string   `json:"group,omitempty" db:"group_name"`
	Comment             *string   `json:"comment,omitempty" db:"comment"`
	DurationMinutes     *int      `json:"duration_minutes,omitempty" db:"duration_minutes"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`

	Series       *Series       `json:"series,omitempty" db:"-"`
	Races        []Race        `json:"races,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
}

// AgeGroup возвращает человекочитаемый возрастной диапазон ("2010-2012")
// или пустую строку, если диапазон не задан.
func (c Contest) AgeGroup() string {
	if c.BirthYearFrom == nil || c.BirthYearTo == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", *c.BirthYearFrom, *c.BirthYearTo)
}
