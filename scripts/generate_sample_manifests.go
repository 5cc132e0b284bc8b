//go:build ignore

package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Writes two gzipped restock manifests for the seeded catalog. Variant 1
// appears in both files, so an import adds 24 + 6 units to it.
//
//	go run scripts/generate_sample_manifests.go
//	go run ./cmd/restock data/restock/supplier-a.gz data/restock/supplier-b.gz
func main() {
	dataDir := "data/restock"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	manifests := map[string][]string{
		"supplier-a.gz": {
			"# supplier A, weekly delivery",
			"1,24",
			"2,12",
			"3,12",
		},
		"supplier-b.gz": {
			"# supplier B, top-up",
			"1,6",
			"4,30",
		},
	}

	for filename, lines := range manifests {
		filePath := filepath.Join(dataDir, filename)
		if err := writeManifest(filePath, lines); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}
		fmt.Printf("Created %s with %d lines\n", filePath, len(lines))
	}
}

func writeManifest(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	for _, line := range lines {
		if _, err := fmt.Fprintln(gz, line); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}
	return gz.Close()
}
