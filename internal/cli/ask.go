package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sciqlabs/tutorlink/internal/api"
	"github.com/sciqlabs/tutorlink/internal/retry"
)

// Ask prompts for a question and an optional subject, retrieves study
// context from the backend through the retry executor, and prints it.
func (a *App) Ask(ctx context.Context) error {
	question, err := getSimpleText(a.reader, "Enter your question", os.Stdout)
	if err != nil {
		return err
	}
	subject, err := getSimpleText(a.reader, "Subject (optional, press Enter to skip)", os.Stdout)
	if err != nil {
		return err
	}

	result, err := retry.Do(ctx, retry.DefaultPolicy(),
		func(ctx context.Context) (*api.Context, error) {
			return a.api.Retrieve(ctx, question, subject)
		},
		retry.WithOnTokenExpired(a.api.Refresh),
		retry.WithLogger(a.log),
	)
	if err != nil {
		printlnFn("Could not retrieve an answer:", err.Error())
		return err
	}

	printlnFn("")
	printlnFn(result.AnswerContext)
	printlnFn(fmt.Sprintf("(topic: %s, confidence: %.2f)", result.SourceTopic, result.ConfidenceScore))
	return nil
}
