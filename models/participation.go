package models

import (
	"encoding/json"
	"time"
)

// ParticipationStatus — явное состояние участия вместо трех перекрывающихся
// boolean-флагов. Машина состояний циклическая:
// registered -> started -> finished -> registered.
type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "registered"
	ParticipationStarted    ParticipationStatus = "started"
	ParticipationFinished   ParticipationStatus = "finished"
)

// Next возвращает следующее состояние цикла.
func (s ParticipationStatus) Next() ParticipationStatus {
	switch s {
	case ParticipationRegistered:
		return ParticipationStarted
	case ParticipationStarted:
		return ParticipationFinished
	case ParticipationFinished:
		return ParticipationRegistered
	default:
		return ParticipationRegistered
	}
}

// ParticipationStatusFromFlags восстанавливает состояние из legacy-колонок
// registered/started/finished. Приоритет у наиболее "продвинутого" флага,
// противоречивые комбинации схлопываются так же, как их читал оригинал.
func ParticipationStatusFromFlags(registered, started, finished bool) ParticipationStatus {
	switch {
	case finished:
		return ParticipationFinished
	case started:
		return ParticipationStarted
	default:
		return ParticipationRegistered
	}
}

// Participation — связь участника с гонкой.
type Participation struct {
	ID            int                 `json:"id" db:"id"`
	ParticipantID int                 `json:"participant_id" db:"participant_id"`
	RaceID        int                 `json:"race_id" db:"race_id"`
	Status        ParticipationStatus `json:"status"`
	Position      *int                `json:"position,omitempty" db:"position"`
	IsProvisional bool                `json:"is_provisional" db:"is_provisional"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`

	Participant *Participant `json:"participant,omitempty" db:"-"`
}

func (p Participation) Registered() bool { return true }

func (p Participation) Started() bool {
	return p.Status == ParticipationStarted || p.Status == ParticipationFinished
}

func (p Participation) Finished() bool { return p.Status == ParticipationFinished }

// StatusFlags возвращает состояние в виде legacy-колонок БД.
func (p Participation) StatusFlags() (registered, started, finished bool) {
	return p.Registered(), p.Started(), p.Finished()
}

// MarshalJSON дополняет объект флагами registered/started/finished,
// которые ожидают существующие клиенты.
func (p Participation) MarshalJSON() ([]byte, error) {
	type alias Participation
	registered, started, finished := p.StatusFlags()
	return json.Marshal(struct {
		alias
		RegisteredFlag bool `json:"registered"`
		StartedFlag    bool `json:"started"`
		FinishedFlag   bool `json:"finished"`
	}{
		alias:          alias(p),
		RegisteredFlag: registered,
		StartedFlag:    started,
		FinishedFlag:   finished,
	})
}
