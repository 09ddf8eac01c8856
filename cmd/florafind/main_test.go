// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/pdiddy/florafind/internal/profile"
	"github.com/pdiddy/florafind/internal/search"
	"github.com/pdiddy/florafind/pkg/types"
)

func TestFormatProfile(t *testing.T) {
	var buf bytes.Buffer
	formatProfile(&buf, "Aloe vera", types.PlantProfile{
		Profile:            "A succulent.",
		Family:             "Asphodelaceae",
		GeneticData:        "2n = 14",
		ScientificArticles: []string{"https://pubmed.ncbi.nlm.nih.gov/1/"},
	})
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Aloe vera\n=========\n"))
	assert.Contains(t, out, "Family: Asphodelaceae")
	assert.Contains(t, out, "Genetic data\n------------\n2n = 14")
	assert.Contains(t, out, " 1. https://pubmed.ncbi.nlm.nih.gov/1/")
	assert.Contains(t, out, "Botanical resources (0)")
	assert.NotContains(t, out, "Species characteristics")
}

func TestPhotoDataURI(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "leaf.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), 0o644))
	uri, err := photoDataURI(png)
	require.NoError(t, err)
	media, err := profile.ParsePhoto(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", media.MIMEType)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("not a photo"), 0o644))
	_, err = photoDataURI(txt)
	assert.ErrorContains(t, err, "does not look like an image")

	_, err = photoDataURI(filepath.Join(dir, "missing.jpg"))
	assert.ErrorContains(t, err, "reading photo")
}

func TestPrintLookupStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	client := newPubMed(search.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))

	assert.Nil(t, client.Search(context.Background(), "   ", 5))
	assert.Nil(t, client.Search(context.Background(), "", 5))

	var buf bytes.Buffer
	printLookupStats(context.Background(), reader, &buf)
	assert.Equal(t, "pubmed lookups skipped=2\n", buf.String())
}

func TestPrintSearchOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSearchOutput(&buf, search.Output{Term: "Rose"}, true))
	assert.JSONEq(t, `{"term": "Rose", "articles": []}`, buf.String())

	buf.Reset()
	require.NoError(t, printSearchOutput(&buf, search.Output{Term: "Rose"}, false))
	assert.Equal(t, "No articles found for \"Rose\".\n", buf.String())
}

func TestMaxResultsFlag(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"unset uses fallback", nil, 5, false},
		{"explicit value", []string{"--max-results", "12"}, 12, false},
		{"explicit zero is kept", []string{"--max-results", "0"}, 0, false},
		{"negative rejected", []string{"--max-results", "-1"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().Int("max-results", 0, "")
			require.NoError(t, cmd.Flags().Parse(tt.args))

			got, err := maxResultsFlag(cmd, 5)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadedSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rose.yaml")
	articles := []string{"https://pubmed.ncbi.nlm.nih.gov/1/", "https://pubmed.ncbi.nlm.nih.gov/2/"}
	require.NoError(t, search.WriteQueryFile(path, search.Query{Term: "Rose", MaxResults: 3}, articles))

	qf, err := search.ReadQueryFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loadedSummary(qf), `Loaded "Rose" (max 3, 2 article(s), saved `))
}

func TestNewAggregator_UsesConfiguredHTTPClient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	saved := appConfig
	t.Cleanup(func() { appConfig = saved })
	appConfig.AI = types.AIConfig{APIKey: "test-key"}
	appConfig.HTTP = types.HTTPConfig{Timeout: 50 * time.Millisecond}

	agg, err := newAggregator(context.Background(), profile.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = agg.GenerateImage(context.Background(), "Rose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client.Timeout exceeded")
}
