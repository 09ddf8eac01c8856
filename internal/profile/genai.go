// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/florafind/pkg/types"
)

const (
	defaultTextModel  = "gemini-2.0-flash"
	defaultImageModel = "gemini-2.0-flash-preview-image-generation"
)

// GenAIModel implements Model on the Gemini API.
type GenAIModel struct {
	client     *genai.Client
	model      string
	imageModel string
}

// GenAIOption configures a GenAIModel.
type GenAIOption func(*genai.ClientConfig)

// WithHTTPClient routes Gemini calls through hc.
func WithHTTPClient(hc *http.Client) GenAIOption {
	return func(c *genai.ClientConfig) { c.HTTPClient = hc }
}

// WithBaseURL points the client at a different Gemini endpoint.
func WithBaseURL(u string) GenAIOption {
	return func(c *genai.ClientConfig) { c.HTTPOptions.BaseURL = u }
}

// NewGenAIModel creates a Gemini-backed model from cfg.
func NewGenAIModel(ctx context.Context, cfg types.AIConfig, opts ...GenAIOption) (*GenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set ai.api_key, FLORAFIND_AI_API_KEY or .secrets/gemini-api-key)")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	m := &GenAIModel{client: client, model: cfg.Model, imageModel: cfg.ImageModel}
	if m.model == "" {
		m.model = defaultTextModel
	}
	if m.imageModel == "" {
		m.imageModel = defaultImageModel
	}
	return m, nil
}

// GenerateJSON implements Model.
func (m *GenAIModel) GenerateJSON(ctx context.Context, req Request, out any) error {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, media := range req.Media {
		parts = append(parts, genai.NewPartFromBytes(media.Data, media.MIMEType))
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.Schema != nil {
		config.ResponseJsonSchema = req.Schema
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return fmt.Errorf("%s: Gemini request: %w", req.Name, err)
	}

	text := responseText(resp)
	if text == "" {
		return fmt.Errorf("%s: Gemini returned no output", req.Name)
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), out); err != nil {
		return fmt.Errorf("%s: parsing Gemini output: %w", req.Name, err)
	}
	return nil
}

// GenerateImage implements Model.
func (m *GenAIModel) GenerateImage(ctx context.Context, prompt string) (Media, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.imageModel, genai.Text(prompt), config)
	if err != nil {
		return Media{}, fmt.Errorf("Gemini image request: %w", err)
	}

	media, ok := firstImage(resp)
	if !ok {
		return Media{}, ErrImageGeneration
	}
	return media, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// firstImage returns the first inline image part of any candidate.
func firstImage(resp *genai.GenerateContentResponse) (Media, bool) {
	if resp == nil {
		return Media{}, false
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(p.InlineData.MIMEType, "image/") {
				continue
			}
			return Media{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}, true
		}
	}
	return Media{}, false
}

// stripCodeFence removes a ```json fence some models wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
