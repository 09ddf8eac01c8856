// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/florafind/pkg/types"
)

// Key files understood by Apply.
const (
	GeminiAPIKey  = "gemini-api-key"
	NCBIAPIKey    = "ncbi-api-key"
	NCBIEmail     = "ncbi-email"
	SessionSecret = "session-secret"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply copies known secrets into cfg. Values already set by config files or
// the environment win.
func Apply(cfg *types.Config, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.AI.APIKey, GeminiAPIKey)
	fill(&cfg.PubMed.APIKey, NCBIAPIKey)
	fill(&cfg.PubMed.Email, NCBIEmail)
	fill(&cfg.Auth.SessionSecret, SessionSecret)
}
