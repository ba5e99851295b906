package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultPubSubEndpoint is the public Pub/Sub REST endpoint.
	DefaultPubSubEndpoint = "https://pubsub.googleapis.com"

	pubsubTimeout = 30 * time.Second
)

// PubSubPublisher publishes messages to a Google Cloud Pub/Sub topic via
// the REST API.
type PubSubPublisher struct {
	log        logrus.FieldLogger
	endpoint   string
	topicPath  string
	token      string
	httpClient *http.Client
}

// NewPubSubPublisher creates a publisher for one topic. An empty
// endpoint selects the public API; token is an OAuth2 access token.
func NewPubSubPublisher(log logrus.FieldLogger, endpoint, projectID, topicID, token string) *PubSubPublisher {
	if endpoint == "" {
		endpoint = DefaultPubSubEndpoint
	}

	return &PubSubPublisher{
		log:        log.WithField("component", "pubsub-publisher"),
		endpoint:   endpoint,
		topicPath:  fmt.Sprintf("projects/%s/topics/%s", projectID, topicID),
		token:      token,
		httpClient: &http.Client{Timeout: pubsubTimeout},
	}
}

// TopicPath returns the fully qualified topic this publisher targets.
func (p *PubSubPublisher) TopicPath() string {
	return p.topicPath
}

type pubsubMessage struct {
	Data       string            `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type pubsubPublishRequest struct {
	Messages []pubsubMessage `json:"messages"`
}

type pubsubPublishResponse struct {
	MessageIDs []string `json:"messageIds"`
}

// Publish sends one message and returns its broker message id.
func (p *PubSubPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	payload, err := json.Marshal(pubsubPublishRequest{
		Messages: []pubsubMessage{{
			Data:       base64.StdEncoding.EncodeToString(data),
			Attributes: attributes,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling publish request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s:publish", p.endpoint, p.topicPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("pubsub publish to %s returned %d: %s", p.topicPath, resp.StatusCode, body)
	}

	var decoded pubsubPublishResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(decoded.MessageIDs) == 0 {
		return "", fmt.Errorf("pubsub publish to %s returned no message id", p.topicPath)
	}

	return decoded.MessageIDs[0], nil
}
