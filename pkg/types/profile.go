// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for FloraFind: configuration,
// plant profiles, scan results, and user accounts.
package types

// PlantProfile is the structured record describing one plant. It is produced
// by the generative model; only ScientificArticles is grounded by a PubMed
// lookup before it reaches the caller.
type PlantProfile struct {
	// Profile is a narrative overview including taxonomy and habitat.
	Profile string `json:"profile" yaml:"profile"`

	// ScientificArticles lists article URLs. PubMed URLs come first.
	ScientificArticles []string `json:"scientificArticles" yaml:"scientific_articles"`

	// BotanicalResources lists links to botanical databases and guides.
	BotanicalResources []string `json:"botanicalResources" yaml:"botanical_resources"`

	// GeneticData summarises the plant's genetic data.
	GeneticData string `json:"geneticData" yaml:"genetic_data"`

	// SpeciesCharacteristics describes the species' traits.
	SpeciesCharacteristics string `json:"speciesCharacteristics" yaml:"species_characteristics"`

	// Family is the taxonomic family, if the model supplied one.
	Family string `json:"family,omitempty" yaml:"family,omitempty"`
}

// ScanResult is the answer to a photo identification request.
type ScanResult struct {
	PlantInfo string `json:"plantInfo" yaml:"plant_info"`
}

// PlantImage carries a generated plant picture as a data URI.
type PlantImage struct {
	ImageURL string `json:"imageUrl" yaml:"image_url"`
}
