package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/github"
)

var (
	commentPRNumber     int
	commentWorkflowName string
	commentReportFile   string
	commentRunID        string
	commentRunURL       string
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Post or update the sticky result comment on a pull request",
	Long: `Maintains one result comment per workflow on a pull request: the
report body is replaced on every run and the run history accumulates in a
collapsible section.`,
	RunE: runComment,
}

func init() {
	rootCmd.AddCommand(commentCmd)
	commentCmd.Flags().IntVar(&commentPRNumber, "pr", 0,
		"Pull request number")
	commentCmd.Flags().StringVar(&commentWorkflowName, "workflow-name", "",
		"Workflow name identifying the sticky comment")
	commentCmd.Flags().StringVar(&commentReportFile, "report-file", "",
		"Markdown report file to post")
	commentCmd.Flags().StringVar(&commentRunID, "run-id", "",
		"CI run id recorded in the history")
	commentCmd.Flags().StringVar(&commentRunURL, "run-url", "",
		"CI run URL recorded in the history")

	_ = commentCmd.MarkFlagRequired("pr")
	_ = commentCmd.MarkFlagRequired("workflow-name")
	_ = commentCmd.MarkFlagRequired("report-file")
	_ = commentCmd.MarkFlagRequired("run-id")
}

func runComment(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.GitHub.Repo == "" {
		return fmt.Errorf("github.repo must be configured")
	}

	reportBody, err := os.ReadFile(commentReportFile)
	if err != nil {
		return fmt.Errorf("reading report file: %w", err)
	}

	client := github.NewClient(log, cfg.GitHub.APIBaseURL, cfg.GitHub.Token)
	sticky := github.NewStickyCommenter(log, client)

	comment, err := sticky.Upsert(cmd.Context(), cfg.GitHub.Repo, commentPRNumber,
		commentWorkflowName, string(reportBody), github.RunRecord{
			RunID:     commentRunID,
			RunURL:    commentRunURL,
			Timestamp: time.Now().UTC(),
		})
	if err != nil {
		return fmt.Errorf("upserting sticky comment: %w", err)
	}

	log.WithField("comment_id", comment.ID).Info("Sticky comment updated")

	return nil
}
