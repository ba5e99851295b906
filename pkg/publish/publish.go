// Package publish sends benchmark results to a message broker so
// downstream dashboards can ingest them.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/regressoor/pkg/result"
)

// maxInFlight bounds concurrent publishes per batch.
const maxInFlight = 8

// RepoAttribute is the message attribute carrying the source repository.
const RepoAttribute = "repo"

// Publisher delivers one encoded message with attributes and returns the
// broker-assigned message id.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Encode renders a result as the canonical UTF-8 JSON message payload.
func Encode(res *result.BenchmarkResult) ([]byte, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encoding result %s: %w", res.ConfigID, err)
	}

	return data, nil
}

// PublishAll fans results out to the publisher concurrently and waits
// for every delivery. Any failed delivery fails the batch, but the
// remaining messages are still attempted.
func PublishAll(
	ctx context.Context,
	log logrus.FieldLogger,
	pub Publisher,
	results []*result.BenchmarkResult,
	repoName string,
) error {
	log.WithFields(logrus.Fields{
		"messages": len(results),
		"repo":     repoName,
	}).Info("Publishing benchmark results")

	attributes := map[string]string{RepoAttribute: repoName}

	var g errgroup.Group

	g.SetLimit(maxInFlight)

	for _, res := range results {
		res := res

		g.Go(func() error {
			data, err := Encode(res)
			if err != nil {
				return err
			}

			id, err := pub.Publish(ctx, data, attributes)
			if err != nil {
				return fmt.Errorf("publishing result %s: %w", res.ConfigID, err)
			}

			log.WithFields(logrus.Fields{
				"config_id":  res.ConfigID,
				"message_id": id,
			}).Info("Published message")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("publishing batch: %w", err)
	}

	return nil
}
