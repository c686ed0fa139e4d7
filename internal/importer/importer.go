// Package importer loads product seed files from HTTP, S3, GCS or local
// paths. Files are JSON Lines of product inputs, optionally gzipped.
package importer

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 1 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// Opener opens a seed source for reading.
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// Loader loads product inputs from multiple sources concurrently
type Loader struct {
	opener Opener

	mu      sync.RWMutex
	batches [][]models.ProductInput
}

// sourceLoadResult holds the result of loading a single source
type sourceLoadResult struct {
	index  int
	inputs []models.ProductInput
	err    error
}

// NewLoader creates a new loader reading through opener
func NewLoader(opener Opener) *Loader {
	return &Loader{opener: opener}
}

// Load reads every source concurrently and returns the inputs in source
// order. It fails if any source fails.
func (l *Loader) Load(ctx context.Context, sources []string) ([]models.ProductInput, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	resultChan := make(chan sourceLoadResult, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(index int, source string) {
			defer wg.Done()

			inputs, err := l.loadSource(ctx, source)
			resultChan <- sourceLoadResult{
				index:  index,
				inputs: inputs,
				err:    err,
			}
		}(i, source)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results maintaining order
	results := make([]sourceLoadResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	for i, result := range results {
		if result.err != nil {
			return nil, fmt.Errorf("failed to load source %d (%s): %w", i+1, sources[i], result.err)
		}
	}

	batches := make([][]models.ProductInput, len(results))
	var all []models.ProductInput
	for i, result := range results {
		batches[i] = result.inputs
		all = append(all, result.inputs...)
	}

	l.mu.Lock()
	l.batches = batches
	l.mu.Unlock()

	return all, nil
}

func (l *Loader) loadSource(ctx context.Context, source string) ([]models.ProductInput, error) {
	rc, err := l.opener.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Decode(rc)
}

// Decode reads JSON Lines of product inputs from r, transparently
// decompressing gzip input. Blank lines are skipped.
func Decode(r io.Reader) ([]models.ProductInput, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(len(gzipMagic))
	if err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		return parseLines(gz)
	}

	return parseLines(br)
}

func parseLines(r io.Reader) ([]models.ProductInput, error) {
	var inputs []models.ProductInput

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var in models.ProductInput
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		inputs = append(inputs, in)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading source: %w", err)
	}

	return inputs, nil
}

// Stats describes the most recent Load.
type Stats struct {
	TotalSources  int   `json:"totalSources"`
	SourceSizes   []int `json:"sourceSizes"`
	TotalProducts int   `json:"totalProducts"`
}

// Stats returns statistics about the last load
func (l *Loader) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		TotalSources: len(l.batches),
		SourceSizes:  make([]int, len(l.batches)),
	}
	for i, b := range l.batches {
		stats.SourceSizes[i] = len(b)
		stats.TotalProducts += len(b)
	}
	return stats
}
