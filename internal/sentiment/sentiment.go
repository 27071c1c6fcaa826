package sentiment

import "github.com/hiqiancheng/PoliPlay/internal/models"

// Score bands. A score of 3 counts as neutral.
const (
	SupportThreshold = 4
	OpposeThreshold  = 2
)

// Stats is the score distribution of a set of role comments
type Stats struct {
	Total       int
	Support     int
	Oppose      int
	SupportRate int
	OpposeRate  int
	ScoreSum    int
}

// Aggregate counts supporting and opposing comments and derives the rates
func Aggregate(comments []models.RoleComment) Stats {
	s := Stats{Total: len(comments)}
	for _, c := range comments {
		score := models.ClampScore(int(c.Score))
		s.ScoreSum += int(score)
		switch {
		case score >= SupportThreshold:
			s.Support++
		case score <= OpposeThreshold:
			s.Oppose++
		}
	}

	s.SupportRate = Rate(s.Support, s.Total)
	s.OpposeRate = Rate(s.Oppose, s.Total)
	return s
}

// Rate is n/total as a percentage rounded half up, 0 when total is 0
func Rate(n, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*n + total) / (2 * total)
}

// Neutral is the number of comments in neither band
func (s Stats) Neutral() int {
	return s.Total - s.Support - s.Oppose
}

// NeutralRate is what remains of 100 after both rates, never negative
func (s Stats) NeutralRate() int {
	if rest := 100 - s.SupportRate - s.OpposeRate; rest > 0 {
		return rest
	}
	return 0
}

// AverageScore is the mean score, 0 for no comments
func (s Stats) AverageScore() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ScoreSum) / float64(s.Total)
}
