// Package grading holds the pure scoring and grade-weighting computations.
// Nothing in this package touches storage; both the attempt scorer and the
// gradebook reporter share the same weighting function so the two paths
// cannot drift apart.
package grading

import (
	"log/slog"
	"math"

	"github.com/learnlite/gradebook/internal/model"
)

// AttemptScore is the outcome of scoring one submission against a quiz's
// question list.
type AttemptScore struct {
	Results      []model.QuestionResult
	EarnedPoints int
	TotalPoints  int
	Score        int // 0-100, rounded
}

// ScoreAttempt scores a set of submitted answers against the quiz's
// questions. Answers are matched to questions by question ID (first match
// wins); a question without a submitted answer is scored as an empty string.
// Comparison is exact string equality, case-sensitive and untrimmed.
//
// A quiz whose questions carry zero total points scores 0 rather than
// dividing by zero.
func ScoreAttempt(questions []model.QuizQuestion, answers []model.AnswerSubmission) AttemptScore {
	var sc AttemptScore
	for _, q := range questions {
		sc.TotalPoints += q.Points

		submitted := ""
		for _, a := range answers {
			if a.QuestionID == q.ID {
				submitted = a.Answer
				break
			}
		}

		correct := submitted == q.Answer
		awarded := 0
		if correct {
			awarded = q.Points
			sc.EarnedPoints += q.Points
		}
		sc.Results = append(sc.Results, model.QuestionResult{
			QuestionID:    q.ID,
			Answer:        submitted,
			CorrectAnswer: q.Answer,
			Correct:       correct,
			PointsAwarded: awarded,
		})
	}

	if sc.TotalPoints == 0 {
		slog.Warn("quiz has zero total points, scoring 0", "questions", len(questions))
		return sc
	}
	sc.Score = int(math.Round(float64(sc.EarnedPoints) / float64(sc.TotalPoints) * 100))
	return sc
}

// WeightedEntry builds the stored per-quiz score entry for a course grade.
// The weighted contribution is (score * weight) / 100.
func WeightedEntry(quizID int64, score, weight int) model.QuizScoreEntry {
	return model.QuizScoreEntry{
		QuizID:   quizID,
		Score:    score,
		Weight:   weight,
		Weighted: float64(score*weight) / 100,
	}
}

// ComputeWeightedGrade reduces per-quiz score entries to a final grade and
// letter. With a positive total weight the grade is the weighted average of
// scores; when no quiz carries weight it falls back to the simple average of
// raw scores; with no scores at all the grade is 0. The result is rounded to
// two decimal places.
func ComputeWeightedGrade(scores []model.QuizScoreEntry) (float64, string) {
	var totalWeight int
	var weightedSum float64
	for _, e := range scores {
		totalWeight += e.Weight
		weightedSum += e.Weighted
	}

	var final float64
	switch {
	case totalWeight > 0:
		final = weightedSum / float64(totalWeight) * 100
	case len(scores) > 0:
		var sum int
		for _, e := range scores {
			sum += e.Score
		}
		final = float64(sum) / float64(len(scores))
	}

	final = math.Round(final*100) / 100
	return final, LetterFor(final)
}

// LetterFor maps a numeric grade to a letter using fixed cutoffs.
func LetterFor(grade float64) string {
	switch {
	case grade >= 90:
		return "A"
	case grade >= 80:
		return "B"
	case grade >= 70:
		return "C"
	case grade >= 60:
		return "D"
	default:
		return "F"
	}
}
