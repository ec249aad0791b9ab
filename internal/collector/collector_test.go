package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"LMPSentinel/internal/model"
)

func table(days int, header bool) string {
	var b strings.Builder
	if header {
		b.WriteString("PUBLISHDATE")
		for h := 1; h <= 24; h++ {
			fmt.Fprintf(&b, ",HE%02d", h)
		}
		b.WriteString("\n")
	}
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "01-%02d-2015", d)
		for h := 1; h <= 24; h++ {
			fmt.Fprintf(&b, ",%d.5", 20+h)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(table(3, true)), true)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].PublishDate != "01-01-2015" || len(rows[0].Hours) != 24 || rows[0].Hours[0] != "21.5" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[0].Line != 2 || rows[2].Line != 4 {
		t.Errorf("line numbers should count the header, got %d and %d", rows[0].Line, rows[2].Line)
	}
}

func TestParseCSV_RaggedRowsKept(t *testing.T) {
	in := "01-01-2015,1,2,3\n01-02-2015," + strings.Repeat("1,", 24) + "9\n"
	rows, err := ParseCSV(strings.NewReader(in), false)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 2 || len(rows[0].Hours) != 3 || len(rows[1].Hours) != 25 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestParseCSV_QuoteError(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("01-01-2015,\"1\n"), false)
	var rowErr *model.RowError
	if !errors.As(err, &rowErr) || !errors.Is(err, model.ErrMalformedInput) {
		t.Fatalf("expected RowError, got %v", err)
	}
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lmp.csv")
	if err := os.WriteFile(path, []byte(table(2, true)), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewSource(path, "", "", "", true, 0)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	rows, err := NewCollector(src, zerolog.Nop()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
	if _, err := (&CSVSource{Path: filepath.Join(t.TempDir(), "none.csv")}).Fetch(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, table(4, true))
	}))
	defer srv.Close()

	rows, err := NewHTTPSource(srv.URL, "secret", "", true, 0).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("expected 4 rows, got %d", len(rows))
	}

	_, err = NewHTTPSource(srv.URL, "wrong", "", true, 0).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("expected 401 error, got %v", err)
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource("local.csv", "https://example.com/lmp.csv", "", "", true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*HTTPSource); !ok {
		t.Errorf("url should take precedence, got %T", src)
	}
	if _, err := NewSource("", "", "", "", true, 0); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestCollect_WrapsSourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewCollector(&MockSource{Err: boom}, zerolog.Nop()).Collect(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "mock") {
		t.Errorf("unexpected error %v", err)
	}
}
