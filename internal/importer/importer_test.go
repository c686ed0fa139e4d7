package importer

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

const cerealLines = `{"name":"Steel Cut Oats","category":"cereals","nutritionFacts":{"calories":150,"fiber":4,"protein":5}}

{"name":"Frosted Flakes","category":"cereals","nutritionFacts":{"calories":"150","sugar":"12g"}}
`

const snackLines = `{"name":"Kettle Chips","category":"chips","ingredients":["Potatoes","Salt"],"nutritionFacts":{"fat":10}}
`

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// setupTestFiles writes a plain and a gzipped seed file and returns their paths
func setupTestFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	plain := filepath.Join(dir, "cereals.jsonl")
	if err := os.WriteFile(plain, []byte(cerealLines), 0o644); err != nil {
		t.Fatalf("failed to create plain file: %v", err)
	}

	zipped := filepath.Join(dir, "snacks.jsonl.gz")
	if err := os.WriteFile(zipped, gzipBytes(t, snackLines), 0o644); err != nil {
		t.Fatalf("failed to create gzip file: %v", err)
	}

	return plain, zipped
}

func TestLoader_LoadFiles(t *testing.T) {
	plain, zipped := setupTestFiles(t)

	t.Run("preserves source order", func(t *testing.T) {
		loader := NewLoader(NewSources(S3Config{}))
		inputs, err := loader.Load(context.Background(), []string{zipped, plain})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		var names []string
		for _, in := range inputs {
			names = append(names, in.Name)
		}
		want := "Kettle Chips,Steel Cut Oats,Frosted Flakes"
		if got := strings.Join(names, ","); got != want {
			t.Errorf("names = %s, want %s", got, want)
		}

		if inputs[2].NutritionFacts.Sugar != nutriscore.Amount(12) {
			t.Errorf("lenient sugar = %v, want 12", inputs[2].NutritionFacts.Sugar)
		}

		stats := loader.Stats()
		if stats.TotalSources != 2 || stats.TotalProducts != 3 {
			t.Errorf("Stats() = %+v", stats)
		}
		if stats.SourceSizes[0] != 1 || stats.SourceSizes[1] != 2 {
			t.Errorf("SourceSizes = %v, want [1 2]", stats.SourceSizes)
		}
	})

	t.Run("empty sources", func(t *testing.T) {
		loader := NewLoader(NewSources(S3Config{}))
		if _, err := loader.Load(context.Background(), nil); err == nil {
			t.Error("expected error for empty sources, got nil")
		}
	})

	t.Run("one missing file fails the load", func(t *testing.T) {
		loader := NewLoader(NewSources(S3Config{}))
		_, err := loader.Load(context.Background(), []string{plain, "/non/existent/file.jsonl"})
		if err == nil {
			t.Fatal("expected error for non-existent file, got nil")
		}
		if !strings.Contains(err.Error(), "source 2") {
			t.Errorf("error %q does not name the failing source", err)
		}
		if loader.Stats().TotalSources != 0 {
			t.Error("failed load replaced stats")
		}
	})
}

func TestLoader_LoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/snacks.jsonl.gz":
			w.Write(gzipBytes(t, snackLines))
		case "/cereals.jsonl":
			w.Write([]byte(cerealLines))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewLoader(NewSources(S3Config{}))

	inputs, err := loader.Load(context.Background(), []string{srv.URL + "/snacks.jsonl.gz", srv.URL + "/cereals.jsonl"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(inputs) != 3 {
		t.Errorf("len(inputs) = %d, want 3", len(inputs))
	}

	if _, err := loader.Load(context.Background(), []string{srv.URL + "/missing"}); err == nil {
		t.Error("expected error for 404, got nil")
	}
}

func TestLoader_LoadS3(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(snackLines))
	}))
	defer srv.Close()

	loader := NewLoader(NewSources(S3Config{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	}))

	inputs, err := loader.Load(context.Background(), []string{"s3://seed-bucket/catalog/snacks.jsonl"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(inputs) != 1 || inputs[0].Name != "Kettle Chips" {
		t.Errorf("inputs = %+v", inputs)
	}
	if gotPath != "/seed-bucket/catalog/snacks.jsonl" {
		t.Errorf("request path = %s, want path-style bucket/key", gotPath)
	}
}

func TestDecode_BadLine(t *testing.T) {
	_, err := Decode(strings.NewReader("{\"name\":\"ok\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Decode() error = %v, want line 2", err)
	}
}

func TestDecode_Empty(t *testing.T) {
	inputs, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(inputs) != 0 {
		t.Errorf("len(inputs) = %d, want 0", len(inputs))
	}
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		source  string
		scheme  string
		bucket  string
		key     string
		wantErr bool
	}{
		{"./seed/products.jsonl", "", "", "", false},
		{"https://example.com/p.jsonl", "https", "", "", false},
		{"s3://bucket/dir/p.jsonl.gz", "s3", "bucket", "dir/p.jsonl.gz", false},
		{"gs://bucket/p.jsonl", "gs", "bucket", "p.jsonl", false},
		{"s3://bucket", "", "", "", true},
		{"ftp://host/file", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			scheme, bucket, key, err := splitSource(tt.source)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if scheme != tt.scheme || bucket != tt.bucket || key != tt.key {
				t.Errorf("splitSource() = %q %q %q, want %q %q %q", scheme, bucket, key, tt.scheme, tt.bucket, tt.key)
			}
		})
	}
}
