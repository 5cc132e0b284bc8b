package restock

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for manifests on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based manifest loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "manifest-loader").Logger(),
	}
}

// Load reads a gzipped manifest from disk.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Manifest, error) {
	l.logger.Info().Str("file", filePath).Msg("loading restock manifest")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open manifest")
		return nil, fmt.Errorf("failed to open manifest %s: %w", filePath, err)
	}
	defer file.Close()

	manifest, err := parseManifest(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse manifest")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("entries", len(manifest.Entries)).
		Msg("restock manifest loaded")

	return manifest, nil
}
