package services

import (
	"testing"

	"github.com/cyclocross/stevenscup-app/models"
)

func TestPointsForParticipation(t *testing.T) {
	pos := func(v int) *int { return &v }

	tests := []struct {
		name     string
		status   models.ParticipationStatus
		position *int
		want     int
	}{
		{"registered only", models.ParticipationRegistered, nil, 0},
		{"registered with stale position", models.ParticipationRegistered, pos(4), 0},
		{"started not finished", models.ParticipationStarted, nil, 2},
		{"finished first", models.ParticipationFinished, pos(1), 22},
		{"finished second", models.ParticipationFinished, pos(2), 19},
		{"finished third", models.ParticipationFinished, pos(3), 17},
		{"finished tenth", models.ParticipationFinished, pos(10), 8},
		{"finished fifteenth", models.ParticipationFinished, pos(15), 3},
		{"finished twentieth", models.ParticipationFinished, pos(20), 3},
		{"finished beyond table", models.ParticipationFinished, pos(21), 2},
		{"finished without position", models.ParticipationFinished, nil, 2},
		{"finished invalid position", models.ParticipationFinished, pos(0), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.Participation{Status: tt.status, Position: tt.position}
			if got := PointsForParticipation(p); got != tt.want {
				t.Errorf("PointsForParticipation() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Очки строго убывают с первой по четырнадцатую позицию; дальше идет
// плоский хвост по одному очку.
func TestPositionPointsMonotonic(t *testing.T) {
	for i := 1; i < 14; i++ {
		if positionPoints[i-1] <= positionPoints[i] {
			t.Errorf("positionPoints[%d]=%d is not greater than positionPoints[%d]=%d",
				i-1, positionPoints[i-1], i, positionPoints[i])
		}
	}
	for i := 14; i < len(positionPoints); i++ {
		if positionPoints[i] != 1 {
			t.Errorf("positionPoints[%d] = %d, want 1", i, positionPoints[i])
		}
	}
}
