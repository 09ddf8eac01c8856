// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Model abstracts the hosted generative model so tests can supply a fake.
type Model interface {
	// GenerateJSON sends one prompt, with optional inline media, and decodes
	// the model's JSON answer into out. Schema constrains the answer.
	GenerateJSON(ctx context.Context, req Request, out any) error

	// GenerateImage asks the image model for a picture matching prompt.
	GenerateImage(ctx context.Context, prompt string) (Media, error)
}

// Request is one structured-output call.
type Request struct {
	// Name identifies the prompt in logs.
	Name   string
	Prompt string
	Media  []Media
	Schema *jsonschema.Schema
}
