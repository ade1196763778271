package models

import "time"

// RankingParticipation — строка "история гонок" внутри рейтинга участника.
type RankingParticipation struct {
	RaceID    int       `json:"race_id"`
	EventName string    `json:"event_name"`
	EventDate time.Time `json:"event_date"`
	Position  *int      `json:"position,omitempty"`
	Points    int       `json:"points"`
}

// ParticipantRanking — агрегированный результат участника в зачете.
type ParticipantRanking struct {
	ParticipantID    int                    `json:"participant_id"`
	ParticipantName  string                 `json:"participant_name"`
	ParticipantClub  *string                `json:"participant_club,omitempty"`
	BibNumber        int                    `json:"bib_number"`
	TotalPoints      int                    `json:"total_points"`
	LastRacePosition *int                   `json:"last_race_position,omitempty"`
	Participations   []RankingParticipation `json:"participations"`
}

// ContestRanking — рейтинг зачета, топ-N или полный список.
type ContestRanking struct {
	ContestID   int                  `json:"contest_id"`
	ContestName string               `json:"contest_name"`
	AgeGroup    *string              `json:"age_group,omitempty"`
	Gender      *string              `json:"gender,omitempty"`
	Rankings    []ParticipantRanking `json:"rankings"`
}

// SeriesRanking — рейтинги всех зачетов серии.
type SeriesRanking struct {
	SeriesID     int              `json:"series_id"`
	SeriesName   string           `json:"series_name"`
	SeriesSeason string           `json:"series_season"`
	Contests     []ContestRanking `json:"contests"`
}

// CompletedRaceRef — ссылка на последнюю завершенную гонку зачета.
type CompletedRaceRef struct {
	RaceID    int       `json:"race_id"`
	EventName string    `json:"event_name"`
	EventDate time.Time `json:"event_date"`
}

// ContestStatistics — вторичный read-only агрегат по зачету.
type ContestStatistics struct {
	TotalCompletedRaces int               `json:"total_completed_races"`
	LatestCompletedRace *CompletedRaceRef `json:"latest_completed_race,omitempty"`
}
