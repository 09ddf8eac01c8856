// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pdiddy/florafind/internal/logger"
	"github.com/pdiddy/florafind/pkg/types"
)

// pubMedBase is the NCBI E-utilities base URL. Declared as a var so tests
// can substitute an httptest server.
var pubMedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Outcome labels recorded for every lookup.
const (
	outcomeOK             = "ok"
	outcomeEmpty          = "empty"
	outcomeSkipped        = "skipped"
	outcomeTransportError = "transport_error"
	outcomeStatusError    = "status_error"
	outcomeMalformed      = "malformed"
)

// PubMedClient finds article URLs for a term through PubMed's esearch
// endpoint. Lookups never fail: every fault degrades to an empty result
// after being logged and counted. Safe for concurrent use.
type PubMedClient struct {
	client  *http.Client
	base    string
	tool    string
	email   string
	apiKey  string
	log     logrus.FieldLogger
	lookups metric.Int64Counter
}

// Option configures a PubMedClient.
type Option func(*PubMedClient)

// WithLogger sets the logger that receives lookup failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *PubMedClient) { c.log = l }
}

// WithMeterProvider records lookup outcomes on mp instead of the global
// OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *PubMedClient) { c.lookups = newLookupCounter(mp) }
}

// NewPubMedClient returns a client that sends requests through hc. The
// optional tool, email and API key in cfg are passed to NCBI as-is.
func NewPubMedClient(hc *http.Client, cfg types.PubMedConfig, opts ...Option) *PubMedClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	base := cfg.BaseURL
	if base == "" {
		base = pubMedBase
	}
	c := &PubMedClient{
		client: hc,
		base:   strings.TrimRight(base, "/"),
		tool:   cfg.Tool,
		email:  cfg.Email,
		apiKey: cfg.APIKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDiscard(c.log)
	if c.lookups == nil {
		c.lookups = newLookupCounter(otel.GetMeterProvider())
	}
	return c
}

func newLookupCounter(mp metric.MeterProvider) metric.Int64Counter {
	counter, err := mp.Meter("florafind/search").Int64Counter(
		"florafind.pubmed.searches",
		metric.WithDescription("PubMed article lookups by outcome"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		// The API never hands back a nil instrument, but stay safe.
		counter, _ = otel.GetMeterProvider().Meter("florafind/search").Int64Counter("florafind.pubmed.searches")
	}
	return counter
}

// Search returns up to maxResults canonical PubMed URLs for articles whose
// title or abstract matches term, in PubMed's relevance order. A blank term
// or a negative maxResults returns nil without contacting PubMed. Transport
// errors, non-2xx statuses and malformed bodies also return nil.
func (c *PubMedClient) Search(ctx context.Context, term string, maxResults int) []string {
	q := Query{Term: term, MaxResults: maxResults}
	if q.IsEmpty() || maxResults < 0 {
		c.record(ctx, outcomeSkipped)
		return nil
	}

	fields := logrus.Fields{"term": q.Term, "max_results": maxResults}

	ids, outcome, err := c.esearch(ctx, q)
	c.record(ctx, outcome)
	if err != nil {
		c.log.WithFields(fields).WithField("outcome", outcome).WithError(err).Warn("pubmed lookup failed; returning no articles")
		return nil
	}
	if len(ids) == 0 {
		c.log.WithFields(fields).Debug("pubmed lookup found no articles")
		return nil
	}

	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ArticleURLs(ids)
}

// esearch performs the single outbound request and classifies the outcome.
func (c *PubMedClient) esearch(ctx context.Context, q Query) ([]string, string, error) {
	reqURL := c.base + "/esearch.fcgi?" + c.params(q).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, outcomeTransportError, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, outcomeTransportError, fmt.Errorf("PubMed API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, outcomeStatusError, fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}

	var er eSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, outcomeMalformed, fmt.Errorf("parsing PubMed response: %w", err)
	}
	if er.Result == nil || er.Result.IDList == nil {
		msg := "response has no esearchresult.idlist"
		if er.Result != nil && er.Result.Error != "" {
			msg += ": " + er.Result.Error
		}
		return nil, outcomeMalformed, fmt.Errorf("%s", msg)
	}

	if len(er.Result.IDList) == 0 {
		return nil, outcomeEmpty, nil
	}
	return er.Result.IDList, outcomeOK, nil
}

// params builds the esearch query string. maxResults is sent verbatim.
func (c *PubMedClient) params(q Query) url.Values {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {q.Term + "[Title/Abstract]"},
		"retmax":  {strconv.Itoa(q.MaxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}

func (c *PubMedClient) record(ctx context.Context, outcome string) {
	c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// PubMed esearch JSON structures.
type eSearchResponse struct {
	Result *eSearchResult `json:"esearchresult"`
}

type eSearchResult struct {
	Count  string   `json:"count"`
	IDList []string `json:"idlist"`
	Error  string   `json:"ERROR"`
}
