//go:build mage

// Package main contains Mage build targets for florafind developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories florafind expects.
var projectDirs = []string{
	"data",
	".secrets",
	"output/profiles",
	"output/images",
}

const (
	binDir  = "bin"
	binName = "florafind"
	cmdPkg  = "./cmd/florafind"
)

// Init creates the project directory structure and a starter config.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if err := os.Chmod(".secrets", 0o700); err != nil {
		return fmt.Errorf("restricting .secrets: %w", err)
	}

	if _, err := os.Stat("florafind.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("florafind.yaml", []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing florafind.yaml: %w", err)
		}
		fmt.Println("   florafind.yaml")
	}
	fmt.Println("Project initialized. Put your Gemini key in .secrets/gemini-api-key.")
	return nil
}

const starterConfig = `pubmed:
  max_results: 5
  tool: florafind
ai:
  model: gemini-2.0-flash
auth:
  database_path: data/florafind.db
server:
  addr: ":8080"
  rate_limit: 20
log:
  level: info
`

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check vets and tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Serve builds the binary and runs the web app.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "serve")
}

// Search looks up PubMed articles for term.
func Search(term string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "search", term)
}

// Profile writes a YAML plant profile to output/profiles/.
func Profile(plant string) error {
	mg.Deps(Build)
	out, err := sh.Output(filepath.Join(binDir, binName), "profile", plant, "--yaml")
	if err != nil {
		return err
	}
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(plant)), " ", "-")
	path := filepath.Join("output", "profiles", name+".yaml")
	if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Println("Wrote", path)
	return nil
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints project metrics: Go production/test LOC.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	return nil
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}
