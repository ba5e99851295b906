package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/publish"
	"github.com/ethpandaops/regressoor/pkg/result"
)

var (
	publishResultsDir string
	publishRepoName   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish collected benchmark results to Pub/Sub",
	Long: `Loads every result artifact in the given directory and publishes each
as a JSON message, tagged with the source repository, so downstream dashboards
can ingest the run.`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&publishResultsDir, "results-dir", "",
		"Directory holding the collected result artifacts")
	publishCmd.Flags().StringVar(&publishRepoName, "repo", "",
		"Repository attribute on published messages (default: github.repo)")

	_ = publishCmd.MarkFlagRequired("results-dir")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !cfg.PubSub.Enabled {
		return fmt.Errorf("pubsub publishing is not enabled in config")
	}

	repoName := publishRepoName
	if repoName == "" {
		repoName = cfg.GitHub.Repo
	}

	if repoName == "" {
		return fmt.Errorf("no repository name: set --repo or github.repo")
	}

	results, err := result.LoadDir(publishResultsDir)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	pub := publish.NewPubSubPublisher(log, cfg.PubSub.Endpoint,
		cfg.PubSub.ProjectID, cfg.PubSub.TopicID, cfg.PubSub.AccessToken)

	log.WithField("topic", pub.TopicPath()).Info("Targeting Pub/Sub topic")

	if err := publish.PublishAll(cmd.Context(), log, pub, results, repoName); err != nil {
		return err
	}

	log.WithField("messages", len(results)).Info("All results published")

	return nil
}
