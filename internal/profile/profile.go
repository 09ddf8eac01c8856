// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile produces plant profiles, photo identifications and plant
// images by prompting a generative model. Profiles are grounded with
// scientific articles from an ArticleSearcher before the model is called.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/florafind/internal/logger"
	"github.com/pdiddy/florafind/pkg/types"
)

var (
	// ErrEmptyPlantName reports a blank plant name.
	ErrEmptyPlantName = errors.New("plant name is required")

	// ErrPhotoRequired reports a scan without a photo.
	ErrPhotoRequired = errors.New("a plant photo is required")

	// ErrImageGeneration reports a model answer without an image.
	ErrImageGeneration = errors.New("image generation failed")
)

// ArticleSearcher finds article URLs for a term. It must not fail: a lookup
// problem yields an empty list.
type ArticleSearcher interface {
	Search(ctx context.Context, term string, maxResults int) []string
}

// AggregateInput names the plant to profile and optionally attaches a photo.
type AggregateInput struct {
	PlantName    string `json:"plantName"`
	PhotoDataURI string `json:"photoDataUri,omitempty"`
}

// Aggregator builds plant records from a Model and an ArticleSearcher.
type Aggregator struct {
	model        Model
	articles     ArticleSearcher
	articleCount int
	log          logrus.FieldLogger
}

// NewAggregator returns an Aggregator. articleCount is the number of PubMed
// articles requested per profile; values below one use the default of five.
func NewAggregator(model Model, articles ArticleSearcher, articleCount int, log logrus.FieldLogger) *Aggregator {
	if articleCount < 1 {
		articleCount = 5
	}
	return &Aggregator{
		model:        model,
		articles:     articles,
		articleCount: articleCount,
		log:          logger.OrDiscard(log),
	}
}

// Aggregate produces a profile for in.PlantName. The article search runs
// exactly once, before the single model call, and its URLs lead the
// profile's ScientificArticles.
func (a *Aggregator) Aggregate(ctx context.Context, in AggregateInput) (types.PlantProfile, error) {
	name := strings.TrimSpace(in.PlantName)
	if name == "" {
		return types.PlantProfile{}, ErrEmptyPlantName
	}

	var media []Media
	if in.PhotoDataURI != "" {
		photo, err := ParsePhoto(in.PhotoDataURI)
		if err != nil {
			return types.PlantProfile{}, err
		}
		media = append(media, photo)
	}

	pubmed := a.articles.Search(ctx, name, a.articleCount)
	a.log.WithFields(logrus.Fields{"plant": name, "articles": len(pubmed)}).Debug("pubmed grounding done")

	prompt, err := render(aggregatePromptTmpl, promptData{PlantName: name, HasPhoto: len(media) > 0, Articles: pubmed})
	if err != nil {
		return types.PlantProfile{}, err
	}

	var out types.PlantProfile
	req := Request{Name: "aggregatePlantData", Prompt: prompt, Media: media, Schema: profileSchema}
	if err := a.model.GenerateJSON(ctx, req, &out); err != nil {
		return types.PlantProfile{}, fmt.Errorf("aggregating plant data for %q: %w", name, err)
	}

	out.ScientificArticles = mergeURLs(pubmed, out.ScientificArticles)
	out.BotanicalResources = mergeURLs(nil, out.BotanicalResources)
	return out, nil
}

// Scan identifies the plant in a photo data URI.
func (a *Aggregator) Scan(ctx context.Context, photoDataURI string) (types.ScanResult, error) {
	if strings.TrimSpace(photoDataURI) == "" {
		return types.ScanResult{}, ErrPhotoRequired
	}
	photo, err := ParsePhoto(photoDataURI)
	if err != nil {
		return types.ScanResult{}, err
	}

	prompt, err := render(scanPromptTmpl, promptData{HasPhoto: true})
	if err != nil {
		return types.ScanResult{}, err
	}

	var out types.ScanResult
	req := Request{Name: "scanPlantInfo", Prompt: prompt, Media: []Media{photo}, Schema: scanSchema}
	if err := a.model.GenerateJSON(ctx, req, &out); err != nil {
		return types.ScanResult{}, fmt.Errorf("scanning plant photo: %w", err)
	}
	return out, nil
}

// GenerateImage asks the model for a photorealistic picture of the plant and
// returns it as a data URI.
func (a *Aggregator) GenerateImage(ctx context.Context, plantName string) (types.PlantImage, error) {
	name := strings.TrimSpace(plantName)
	if name == "" {
		return types.PlantImage{}, ErrEmptyPlantName
	}

	prompt, err := render(imagePromptTmpl, promptData{PlantName: name})
	if err != nil {
		return types.PlantImage{}, err
	}

	media, err := a.model.GenerateImage(ctx, prompt)
	if err != nil {
		return types.PlantImage{}, fmt.Errorf("generating image of %q: %w", name, err)
	}
	if len(media.Data) == 0 {
		return types.PlantImage{}, ErrImageGeneration
	}
	return types.PlantImage{ImageURL: media.DataURI()}, nil
}

// mergeURLs returns first followed by the entries of rest not already
// present, dropping blanks. Order is preserved.
func mergeURLs(first, rest []string) []string {
	seen := make(map[string]bool, len(first)+len(rest))
	merged := make([]string, 0, len(first)+len(rest))
	for _, list := range [][]string{first, rest} {
		for _, u := range list {
			u = strings.TrimSpace(u)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			merged = append(merged, u)
		}
	}
	return merged
}
