package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/submissions"
)

// ErrNoQuizData signals that the question bank has no entry for an
// achievement. This is a configuration gap, not a transient failure.
var ErrNoQuizData = errors.New("no quiz data configured for achievement")

// BankProvider supplies the question set for an achievement.
type BankProvider interface {
	QuizEntry(ctx context.Context, achievementID string) (*BankEntry, error)
}

// Validator grades quiz submissions against the configured question bank.
type Validator struct {
	bank BankProvider
}

// NewValidator creates a quiz validator backed by a bank provider.
func NewValidator(bank BankProvider) *Validator {
	return &Validator{bank: bank}
}

// Validate grades every configured question and applies the achievement's
// passing-percentage threshold. Unanswered or malformed answers contribute
// zero score and never abort grading.
func (v *Validator) Validate(ctx context.Context, ach *catalog.Achievement, answers map[string]json.RawMessage) *submissions.ValidationResult {
	entry, err := v.bank.QuizEntry(ctx, ach.ID)
	if err != nil {
		if errors.Is(err, ErrNoQuizData) {
			return submissions.Terminal(
				"This achievement has no quiz configured yet.",
				"Check back later or contact support.",
			)
		}
		log.WithError(err).WithField("achievement", ach.ID).Error("Quiz bank fetch failed")
		return submissions.Retryable(
			"Quiz data is temporarily unavailable. Please try again shortly.",
		)
	}

	var maxScore float64
	for _, q := range entry.Questions {
		maxScore += q.Points
	}
	if len(entry.Questions) == 0 || maxScore <= 0 {
		return submissions.Terminal("This achievement's quiz has no gradable questions.")
	}

	passingScore := entry.PassingScore
	if passingScore <= 0 {
		passingScore = ach.PassingScore
	}

	var totalScore float64
	correctCount := 0

	for _, q := range entry.Questions {
		raw, ok := answers[q.ID]
		if !ok {
			continue // unanswered contributes zero, non-fatal
		}

		var ans Answer
		if err := json.Unmarshal(raw, &ans); err != nil {
			log.WithField("question", q.ID).Debug("Malformed answer payload, scoring zero")
			continue
		}

		awarded := v.gradeQuestion(&q, &ans)
		totalScore += awarded

		// Binary correct/incorrect tally: full credit only. Intentionally
		// diverges from the partial-credit score for interactive questions.
		if q.Points > 0 && awarded == q.Points {
			correctCount++
		}
	}

	scorePercentage := totalScore / maxScore * 100
	accuracy := float64(correctCount) / float64(len(entry.Questions)) * 100
	passed := scorePercentage >= passingScore

	var result *submissions.ValidationResult
	if passed {
		result = submissions.Pass(
			fmt.Sprintf("Quiz passed with %.1f%% (%d of %d questions fully correct).",
				scorePercentage, correctCount, len(entry.Questions)),
			"Submit your voucher on-chain to mint the badge.",
		)
	} else {
		result = submissions.Retryable(
			fmt.Sprintf("Quiz score %.1f%% is below the %.0f%% passing threshold.",
				scorePercentage, passingScore),
			"Review the course material and try again.",
			"You have unlimited retries.",
		)
	}

	result.Score = submissions.Float64(totalScore)
	result.MaxScore = submissions.Float64(maxScore)
	result.PassingScore = submissions.Float64(passingScore)
	result.Accuracy = submissions.Float64(accuracy)
	result.CorrectAnswers = submissions.Int(correctCount)
	result.TotalQuestions = submissions.Int(len(entry.Questions))

	log.WithFields(log.Fields{
		"achievement": ach.ID,
		"score":       totalScore,
		"max_score":   maxScore,
		"percentage":  scorePercentage,
		"passed":      passed,
	}).Debug("Quiz graded")

	return result
}

// gradeQuestion awards points for one question. A traditional question takes
// a case-insensitive exact match; an interactive question dispatches to the
// grader matching the configured answer type.
func (v *Validator) gradeQuestion(q *Question, ans *Answer) float64 {
	if q.Answer.IsInteractive() {
		return GradeInteractive(q.Answer.Type, ans.Interactive, q.Answer.Spec, q.Points)
	}

	// Traditional multiple choice; an interactive envelope submitted against
	// a traditional question scores zero.
	if ans.Interactive != nil {
		return 0
	}
	if strings.EqualFold(ans.Text, q.Answer.Text) {
		return q.Points
	}
	return 0
}
