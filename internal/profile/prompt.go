// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/google/jsonschema-go/jsonschema"
)

// aggregatePromptTmpl asks for a full plant profile. The PubMed URLs found
// beforehand are listed so the model can cite them.
var aggregatePromptTmpl = template.Must(template.New("aggregate").Parse(`You are an AI assistant specializing in botany. Aggregate plant information from multiple online databases, scientific articles, and botanical resources to provide a comprehensive plant profile.

Plant Name: {{.PlantName}}
{{- if .HasPhoto}}
A photo of the plant is attached.
{{- end}}
{{- if .Articles}}

Scientific articles found on PubMed for this plant:
{{- range .Articles}}
- {{.}}
{{- end}}
{{- end}}

Provide the plant profile, scientific articles, botanical resources, genetic data, and species characteristics.
Ensure that the profile includes genetic data, taxonomic classification, and species characteristics.
Return direct links to original data sources, scientific articles, and other relevant botanical resources.
Set family to the plant's taxonomic family.
`))

// scanPromptTmpl asks the model to identify the plant in a photo.
var scanPromptTmpl = template.Must(template.New("scan").Parse(`You are an expert botanist. A user has provided an image of a plant.

Identify the plant in the image. Provide detailed information about the plant, including its scientific name, common names, characteristics, habitat, and uses.
`))

// imagePromptTmpl describes the picture to generate.
var imagePromptTmpl = template.Must(template.New("image").Parse(
	`a photorealistic image of a single {{.PlantName}} plant in a natural environment`))

type promptData struct {
	PlantName string
	HasPhoto  bool
	Articles  []string
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func stringListProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
}

// profileSchema constrains the aggregate answer to types.PlantProfile.
var profileSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"profile":                stringProp("A comprehensive profile of the plant, including genetic data, taxonomic classification, scientific articles, and other relevant information."),
		"scientificArticles":     stringListProp("A list of relevant scientific articles about the plant."),
		"botanicalResources":     stringListProp("A list of links to botanical resources about the plant."),
		"geneticData":            stringProp("A summary of the plant genetic data"),
		"speciesCharacteristics": stringProp("Details on species characteristics"),
		"family":                 stringProp("The taxonomic family of the plant"),
	},
	Required: []string{"profile", "scientificArticles", "botanicalResources", "geneticData", "speciesCharacteristics"},
}

// scanSchema constrains the scan answer to types.ScanResult.
var scanSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"plantInfo": stringProp("Comprehensive information about the scanned plant."),
	},
	Required: []string{"plantInfo"},
}
