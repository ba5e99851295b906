package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Comment markers. These are literal byte sequences: extraction depends
// on exact matches, so they must never be reformatted.
const (
	mainMarkerFormat   = "<!-- regressoor-report:%s -->"
	historyStartMarker = "<!-- regressoor-history:start -->"
	historyEndMarker   = "<!-- regressoor-history:end -->"
)

// historyRe captures the text between the history markers, non-greedy,
// first match.
var historyRe = regexp.MustCompile(
	`(?s)` + regexp.QuoteMeta(historyStartMarker) + `(.*?)` + regexp.QuoteMeta(historyEndMarker))

// RunRecord identifies one workflow run in the comment history.
type RunRecord struct {
	RunID     string
	RunURL    string
	Timestamp time.Time
}

// Line renders the record as a single history entry.
func (r RunRecord) Line() string {
	ts := r.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")

	if r.RunURL == "" {
		return fmt.Sprintf("* Run %s at %s", r.RunID, ts)
	}

	return fmt.Sprintf("* [Run %s](%s) at %s", r.RunID, r.RunURL, ts)
}

// MainMarker returns the marker identifying the main comment of a
// workflow. One main comment exists per (workflow, pull request) pair.
func MainMarker(workflow string) string {
	return fmt.Sprintf(mainMarkerFormat, workflow)
}

// ExtractHistory returns the run history embedded in a comment body, or
// an empty string when the body carries no history markers.
func ExtractHistory(body string) string {
	m := historyRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}

	return strings.Trim(m[1], "\n")
}

// PrependHistory puts the new run's line in front of the previous
// history. Entries are newest first and never pruned.
func PrependHistory(record RunRecord, previous string) string {
	if previous == "" {
		return record.Line()
	}

	return record.Line() + "\n" + previous
}

// BuildBody assembles the full comment body: main marker, last-updated
// line, report, and the collapsible history section.
func BuildBody(workflow, reportBody, history string, now time.Time) string {
	var sb strings.Builder

	sb.Grow(len(reportBody) + len(history) + 512)

	sb.WriteString(MainMarker(workflow))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "_Last updated: %s_\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))
	sb.WriteString(strings.TrimRight(reportBody, "\n"))
	sb.WriteString("\n\n<details>\n<summary>Run History</summary>\n\n")
	sb.WriteString(historyStartMarker)
	sb.WriteString("\n")
	sb.WriteString(history)
	sb.WriteString("\n")
	sb.WriteString(historyEndMarker)
	sb.WriteString("\n</details>\n")

	return sb.String()
}

// CommentAPI is the slice of the GitHub client the sticky commenter
// needs; it exists so tests can fake the remote API.
type CommentAPI interface {
	ListIssueComments(ctx context.Context, repo string, number int) ([]Comment, error)
	CreateIssueComment(ctx context.Context, repo string, number int, body string) (*Comment, error)
	UpdateIssueComment(ctx context.Context, repo string, commentID int64, body string) (*Comment, error)
}

// StickyCommenter maintains the single marked result comment on a pull
// request. The update cycle is read-modify-write without locking: safe
// to re-run serially (find-or-create is idempotent), but two truly
// concurrent writers can interleave and one history entry can be lost
// to a last-write-wins overwrite.
type StickyCommenter struct {
	log logrus.FieldLogger
	api CommentAPI
}

// NewStickyCommenter creates a sticky comment manager on top of api.
func NewStickyCommenter(log logrus.FieldLogger, api CommentAPI) *StickyCommenter {
	return &StickyCommenter{
		log: log.WithField("component", "sticky-commenter"),
		api: api,
	}
}

// Upsert finds the workflow's main comment on the pull request, prepends
// the run to its history, and rewrites it; when no main comment exists
// yet it creates one.
func (s *StickyCommenter) Upsert(
	ctx context.Context,
	repo string,
	prNumber int,
	workflow, reportBody string,
	record RunRecord,
) (*Comment, error) {
	comments, err := s.api.ListIssueComments(ctx, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	marker := MainMarker(workflow)

	var existing *Comment

	for i := range comments {
		if strings.Contains(comments[i].Body, marker) {
			existing = &comments[i]

			break
		}
	}

	previous := ""
	if existing != nil {
		previous = ExtractHistory(existing.Body)
	}

	history := PrependHistory(record, previous)
	body := BuildBody(workflow, reportBody, history, record.Timestamp)

	if existing != nil {
		s.log.WithFields(logrus.Fields{
			"comment_id": existing.ID,
			"pr":         prNumber,
		}).Info("Updating sticky comment")

		updated, err := s.api.UpdateIssueComment(ctx, repo, existing.ID, body)
		if err != nil {
			return nil, fmt.Errorf("updating comment %d: %w", existing.ID, err)
		}

		return updated, nil
	}

	s.log.WithField("pr", prNumber).Info("Creating sticky comment")

	created, err := s.api.CreateIssueComment(ctx, repo, prNumber, body)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	return created, nil
}
