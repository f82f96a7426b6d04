// Package grading holds the pure scoring computation for multiple-choice
// attempts. No I/O: callers load questions and answers, grading only counts.
package grading

import "math"

// Q is the slice of a question that scoring needs.
type Q struct {
	ID            string
	CorrectOption int // 0-based index into the question's options
}

// Score returns the percentage of questions answered correctly, rounded to
// one decimal. An answer counts only when its selected option exactly equals
// the question's correct option; missing entries count as incorrect. Zero
// questions scores 0 rather than dividing by zero.
func Score(questions []Q, answers map[string]int) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if ok && selected == q.CorrectOption {
			correct++
		}
	}
	pct := float64(correct) / float64(len(questions)) * 100
	return Round1(pct)
}

// Round1 rounds to one decimal place, the precision used for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
