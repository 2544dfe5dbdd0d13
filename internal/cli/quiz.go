package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sciqlabs/tutorlink/internal/api"
	"github.com/sciqlabs/tutorlink/internal/retry"
)

// Quiz runs an interactive quiz session: generate questions for a topic,
// walk the user through them, then submit the results for feedback.
//
// Answer checking is intentionally lenient — the user self-reports after
// seeing the reference answer, so a typo never fails a question they got
// right on paper.
func (a *App) Quiz(ctx context.Context) error {
	topic, err := getSimpleText(a.reader, "Quiz topic", os.Stdout)
	if err != nil {
		return err
	}
	difficulty, err := getSimpleText(a.reader, "Difficulty (easy/medium/hard, press Enter for default)", os.Stdout)
	if err != nil {
		return err
	}

	questions, err := retry.Do(ctx, retry.DefaultPolicy(),
		func(ctx context.Context) ([]api.QuizQuestion, error) {
			return a.api.GenerateQuiz(ctx, topic, difficulty)
		},
		retry.WithOnTokenExpired(a.api.Refresh),
		retry.WithLogger(a.log),
	)
	if err != nil {
		printlnFn("Could not generate a quiz:", err.Error())
		return err
	}
	if len(questions) == 0 {
		printlnFn("No questions available for that topic.")
		return nil
	}

	results := make([]api.QuizResult, 0, len(questions))
	correct := 0
	for i, q := range questions {
		printlnFn("")
		printlnFn(fmt.Sprintf("Question %d/%d: %s", i+1, len(questions), q.Question))

		if _, err := getSimpleText(a.reader, "Your answer", os.Stdout); err != nil {
			return err
		}
		printlnFn("Reference answer:", q.Answer)

		verdict, err := getSimpleText(a.reader, "Did you get it right? (y/n)", os.Stdout)
		if err != nil {
			return err
		}
		ok := strings.EqualFold(strings.TrimSpace(verdict), "y")
		if ok {
			correct++
		}
		results = append(results, api.QuizResult{
			QuestionID: q.QuestionID,
			Topic:      q.Topic,
			IsCorrect:  ok,
		})
	}

	printlnFn("")
	printlnFn(fmt.Sprintf("Score: %d/%d", correct, len(results)))

	feedback, err := retry.Do(ctx, retry.DefaultPolicy(),
		func(ctx context.Context) (string, error) {
			return a.api.AnalyzeQuiz(ctx, results)
		},
		retry.WithOnTokenExpired(a.api.Refresh),
		retry.WithLogger(a.log),
	)
	if err != nil {
		printlnFn("Could not fetch feedback:", err.Error())
		return err
	}
	printlnFn(feedback)
	return nil
}
