// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// QueryFile is the on-disk representation of a lookup and its articles, so
// a search can be saved and shown again without contacting PubMed.
type QueryFile struct {
	Query    QueryParams  `yaml:"query"`
	Articles []string     `yaml:"articles"`
	Summary  QuerySummary `yaml:"summary"`
}

// QueryParams stores the query in a serializable form.
type QueryParams struct {
	Term       string `yaml:"term"`
	MaxResults int    `yaml:"max_results"`
}

// QuerySummary stores the article count and when the lookup ran.
type QuerySummary struct {
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves a lookup and its articles to a YAML file.
func WriteQueryFile(path string, q Query, articles []string) error {
	qf := QueryFile{
		Query: QueryParams{
			Term:       q.Term,
			MaxResults: q.MaxResults,
		},
		Articles: articles,
		Summary: QuerySummary{
			Total:     len(articles),
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() Query {
	return Query{Term: p.Term, MaxResults: p.MaxResults}
}

// Output converts the file back into CLI output.
func (qf *QueryFile) Output() Output {
	return Output{Term: qf.Query.Term, Articles: qf.Articles}
}
