package restock

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// checkEvery is how many lines are read between context checks.
const checkEvery = 10_000

// parseManifest reads a gzipped manifest: one "variant_id,quantity" pair per
// line. Blank lines and lines starting with # are skipped.
func parseManifest(ctx context.Context, r io.Reader, source string) (*Manifest, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	manifest := &Manifest{Source: source}

	scanner := bufio.NewScanner(gzipReader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", source, err)
	}

	return manifest, nil
}

func parseLine(line string) (Entry, error) {
	idField, qtyField, ok := strings.Cut(line, ",")
	if !ok {
		return Entry{}, fmt.Errorf("expected variant_id,quantity, got %q", line)
	}

	variantID, err := strconv.ParseInt(strings.TrimSpace(idField), 10, 64)
	if err != nil || variantID <= 0 {
		return Entry{}, fmt.Errorf("invalid variant id %q", idField)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(qtyField))
	if err != nil || qty <= 0 {
		return Entry{}, fmt.Errorf("invalid quantity %q", qtyField)
	}

	return Entry{VariantID: variantID, Quantity: qty}, nil
}
