package services

import "github.com/cyclocross/stevenscup-app/models"

// startedPoints — базовые очки за выход на старт, независимо от финиша.
const startedPoints = 2

// positionPoints — бонус за место на финише: индекс = позиция - 1.
// Места дальше 20-го бонуса не получают.
var positionPoints = [...]int{20, 17, 15, 13, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 1, 1, 1, 1, 1}

// PointsForParticipation вычисляет очки за одно участие. Чистая функция:
// никакого I/O, одинаковый вход дает одинаковый результат.
func PointsForParticipation(p models.Participation) int {
	points := 0

	if p.Started() {
		points += startedPoints
	}

	if p.Finished() && p.Position != nil {
		if pos := *p.Position; pos >= 1 && pos <= len(positionPoints) {
			points += positionPoints[pos-1]
		}
	}

	return points
}
