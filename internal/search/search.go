// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search looks up scientific articles about a plant and returns
// canonical article URLs.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxResults is the number of articles requested when the caller
// does not choose one.
const DefaultMaxResults = 5

// articleURLPrefix is the public PubMed article address.
const articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

// Query holds one article lookup.
type Query struct {
	Term       string
	MaxResults int
}

// IsEmpty reports whether the query has no searchable text.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Term) == ""
}

// ArticleURL returns the canonical PubMed URL for an article identifier.
func ArticleURL(id string) string {
	return articleURLPrefix + id + "/"
}

// ArticleURLs maps identifiers to canonical URLs, preserving order.
func ArticleURLs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = ArticleURL(id)
	}
	return urls
}

// Output is the result of one lookup as shown by the CLI.
type Output struct {
	Term     string   `json:"term"`
	Articles []string `json:"articles"`
}

// FormatTable writes articles as a numbered list to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Articles) == 0 {
		fmt.Fprintf(w, "No articles found for %q.\n", out.Term)
		return
	}

	fmt.Fprintf(w, "%-4s  %s\n", "Rank", "Article")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for i, a := range out.Articles {
		fmt.Fprintf(w, "%-4d  %s\n", i+1, a)
	}
	fmt.Fprintf(w, "\n%d articles for %q\n", len(out.Articles), out.Term)
}

// FormatJSON writes the lookup as indented JSON to w. A lookup with no
// articles encodes an empty list rather than null.
func FormatJSON(out Output, w io.Writer) error {
	if out.Articles == nil {
		out.Articles = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
