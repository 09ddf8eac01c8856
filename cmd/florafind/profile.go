// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/florafind/internal/profile"
	"github.com/pdiddy/florafind/pkg/types"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile <plant name>",
	Short: "Build an AI plant profile grounded in PubMed articles",
	Long: `Profile looks up PubMed articles for the plant, then asks the model for a
profile covering taxonomy, genetic data, species characteristics, scientific
articles and botanical resources. PubMed articles are listed first.

Attach a photo with --photo to help the model disambiguate the plant.`,
	RunE: runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return fmt.Errorf("provide a plant name, e.g. florafind profile \"Monstera deliciosa\"")
	}

	in := profile.AggregateInput{PlantName: name}
	if photoPath, _ := cmd.Flags().GetString("photo"); photoPath != "" {
		uri, err := photoDataURI(photoPath)
		if err != nil {
			return err
		}
		in.PhotoDataURI = uri
	}

	ctx, cancel := signalContext()
	defer cancel()

	agg, err := newAggregator(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Building profile for %q...\n", name)
	prof, err := agg.Aggregate(ctx, in)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	switch {
	case jsonOutput:
		return writeJSON(os.Stdout, prof)
	case yamlOutput:
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(prof)
	default:
		formatProfile(os.Stdout, name, prof)
		return nil
	}
}

func formatProfile(w io.Writer, name string, p types.PlantProfile) {
	fmt.Fprintln(w, name)
	fmt.Fprintln(w, strings.Repeat("=", len(name)))
	if p.Family != "" {
		fmt.Fprintf(w, "Family: %s\n", p.Family)
	}
	fmt.Fprintf(w, "\n%s\n", p.Profile)

	section := func(title, body string) {
		if body == "" {
			return
		}
		fmt.Fprintf(w, "\n%s\n%s\n%s\n", title, strings.Repeat("-", len(title)), body)
	}
	list := func(title string, items []string) {
		fmt.Fprintf(w, "\n%s (%d)\n%s\n", title, len(items), strings.Repeat("-", len(title)))
		for i, item := range items {
			fmt.Fprintf(w, "%2d. %s\n", i+1, item)
		}
	}

	section("Species characteristics", p.SpeciesCharacteristics)
	section("Genetic data", p.GeneticData)
	list("Scientific articles", p.ScientificArticles)
	list("Botanical resources", p.BotanicalResources)
}

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan <photo>",
	Short: "Identify the plant in a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	uri, err := photoDataURI(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	agg, err := newAggregator(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Identifying %s...\n", args[0])
	result, err := agg.Scan(ctx, uri)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(os.Stdout, result)
	}
	fmt.Fprintln(os.Stdout, result.PlantInfo)
	return nil
}

// --- image ---

var imageCmd = &cobra.Command{
	Use:   "image <plant name>",
	Short: "Generate a photorealistic image of a plant",
	RunE:  runImage,
}

func runImage(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return fmt.Errorf("provide a plant name")
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return fmt.Errorf("--out is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	agg, err := newAggregator(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Generating image of %q...\n", name)
	img, err := agg.GenerateImage(ctx, name)
	if err != nil {
		return err
	}
	media, err := profile.ParsePhoto(img.ImageURL)
	if err != nil {
		return fmt.Errorf("decoding generated image: %w", err)
	}
	if err := os.WriteFile(out, media.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%s, %d bytes)\n", out, media.MIMEType, len(media.Data))
	return nil
}

// photoDataURI reads an image file and encodes it as a data URI.
func photoDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > profile.MaxPhotoBytes {
		return "", profile.ErrPhotoTooLarge
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s does not look like an image (%s)", path, mimeType)
	}
	return profile.Media{MIMEType: mimeType, Data: data}.DataURI(), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	profileCmd.Flags().String("photo", "", "photo of the plant to attach")
	profileCmd.Flags().Bool("json", false, "output the profile as JSON")
	profileCmd.Flags().Bool("yaml", false, "output the profile as YAML")
	profileCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	scanCmd.Flags().Bool("json", false, "output the result as JSON")

	imageCmd.Flags().String("out", "", "file to write the image to")

	rootCmd.AddCommand(profileCmd, scanCmd, imageCmd)
}
