package tblog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Point is a single observation of a metric.
type Point struct {
	Step     int64
	WallTime float64
	Value    float64
}

// TimeSeries is the ordered sequence of observations for one tag.
// It is append-only during parsing and read-only afterward.
type TimeSeries struct {
	Tag    string
	Points []Point
}

// Empty reports whether the series contains no points.
func (ts *TimeSeries) Empty() bool {
	return len(ts.Points) == 0
}

// Values returns the point values in observation order.
func (ts *TimeSeries) Values() []float64 {
	values := make([]float64, len(ts.Points))
	for i, p := range ts.Points {
		values[i] = p.Value
	}

	return values
}

// Parser extracts per-tag time series from a directory of event files.
// Both scalar-summary (V1) and tensor-summary (V2) records are supported.
type Parser struct {
	log  logrus.FieldLogger
	tags map[string]struct{}
}

// NewParser creates a parser that extracts only the given tags.
func NewParser(log logrus.FieldLogger, tags []string) *Parser {
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	return &Parser{
		log:  log.WithField("component", "tblog-parser"),
		tags: tagSet,
	}
}

// ParseDir scans all event files under dir and accumulates matching
// records into one time series per requested tag. Every requested tag is
// present in the result, possibly with an empty series. Corrupt files
// are skipped with a warning; points extracted before the corruption are
// kept.
func (p *Parser) ParseDir(dir string) (map[string]*TimeSeries, error) {
	series := make(map[string]*TimeSeries, len(p.tags))
	for tag := range p.tags {
		series[tag] = &TimeSeries{Tag: tag}
	}

	files, err := eventFiles(dir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		p.log.WithField("dir", dir).Warn("No event files found")

		return series, nil
	}

	for _, path := range files {
		if err := p.parseFile(path, series); err != nil {
			p.log.WithError(err).WithField("file", filepath.Base(path)).
				Warn("Skipping unreadable event file")
		}
	}

	return series, nil
}

// parseFile reads one event file and appends matching points to series.
func (p *Parser) parseFile(path string, series map[string]*TimeSeries) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening event file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rr := newRecordReader(f)

	var records int

	for {
		data, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("after %d records: %w", records, err)
		}

		records++

		ev, err := decodeEvent(data)
		if err != nil {
			return fmt.Errorf("decoding record %d: %w", records, err)
		}

		for _, tv := range ev.Values {
			ts, ok := series[tv.Tag]
			if !ok {
				// Tags outside the metric manifest are ignored.
				continue
			}

			ts.Points = append(ts.Points, Point{
				Step:     ev.Step,
				WallTime: ev.WallTime,
				Value:    tv.Value,
			})
		}
	}

	return nil
}

// eventFiles returns event file paths under dir ordered by modification
// time, with the file name as a tie break.
func eventFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading log directory %s: %w", dir, err)
	}

	type fileInfo struct {
		path    string
		modTime int64
	}

	files := make([]fileInfo, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), "tfevents") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, fileInfo{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime != files[j].modTime {
			return files[i].modTime < files[j].modTime
		}

		return files[i].path < files[j].path
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}

	return paths, nil
}
