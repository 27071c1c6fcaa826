package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"github.com/spf13/cobra"
)

var (
	analyzeTitle   string
	analyzeFile    string
	analyzeAnswers []string
	analyzeTimeout time.Duration
	analyzeOut     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run both analysis stages for a policy and print the report",
	Long: `Analyze submits a policy to the clarify stage, answers the returned
questions from --answer flags in order (unanswered questions stay empty)
and submits them to the analyze stage. The stored report is printed as JSON.

Example:
  policyctl analyze --title "垃圾分类管理条例" --file policy.txt
  policyctl analyze --title "数字政府" --file - --answer 全市 --answer 2025年1月1日 < policy.txt`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "policy title (required)")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "-", "policy content file, - for stdin")
	analyzeCmd.Flags().StringArrayVar(&analyzeAnswers, "answer", nil, "answer to the next clarifying question (repeatable)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall timeout")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write the report JSON to this file instead of stdout")
	_ = analyzeCmd.MarkFlagRequired("title")
}

func readContent(path string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read policy content: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// applyAnswers fills the questions in order
func applyAnswers(res *models.ClarifyResult, answers []string) {
	for i := range res.Questions {
		if i < len(answers) {
			res.Questions[i].Answer = answers[i]
		}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	content, err := readContent(analyzeFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	clarify, err := a.Service.SubmitDocument(ctx, analyzeTitle, content)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "%s\n", clarify.Summary)
	applyAnswers(clarify, analyzeAnswers)
	for i, q := range clarify.Questions {
		fmt.Fprintf(errOut, "%d. %s %s\n", i+1, q.Title, q.AnswerText())
	}

	report, err := a.Service.SubmitAnswers(ctx, analyzeTitle, content, clarify)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if analyzeOut != "" {
		if err := os.WriteFile(analyzeOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(errOut, "report %s written to %s\n", report.ID, analyzeOut)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
