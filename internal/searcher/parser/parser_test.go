package parser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/searchlab/termindex/internal/searcher/ranker"
	apperrors "github.com/searchlab/termindex/pkg/errors"
)

func TestReadQueries(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []ranker.Query
	}{
		{
			name:  "trailing newline",
			input: "gato cachorro\nelefante\n",
			want:  []ranker.Query{{"gato", "cachorro"}, {"elefante"}},
		},
		{
			name:  "no trailing newline",
			input: "gato\nPassaro  Azul",
			want:  []ranker.Query{{"gato"}, {"passaro", "azul"}},
		},
		{
			name:  "blank line keeps numbering",
			input: "a\n\nb\n",
			want:  []ranker.Query{{"a"}, {}, {"b"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  []ranker.Query{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadQueries(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadQueries() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadQueries() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseQueryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	if err := os.WriteFile(path, []byte("história do brasil\nfutebol\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ParseQueryFile(path)
	if err != nil {
		t.Fatalf("ParseQueryFile() error = %v", err)
	}
	want := []ranker.Query{{"história", "do", "brasil"}, {"futebol"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseQueryFile() = %v, want %v", got, want)
	}

	if _, err := ParseQueryFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseBoolean(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"gato", "gato"},
		{"gato AND cachorro", "(gato AND cachorro)"},
		{"gato or cachorro", "(gato OR cachorro)"},
		{"Gato Cachorro", "(gato AND cachorro)"},
		{"a AND b OR c", "((a AND b) OR c)"},
		{"a OR b AND c", "((a OR b) AND c)"},
		{"a b OR c", "((a AND b) OR c)"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			expr, err := ParseBoolean(tt.query)
			if err != nil {
				t.Fatalf("ParseBoolean(%q) error = %v", tt.query, err)
			}
			if got := expr.String(); got != tt.want {
				t.Errorf("ParseBoolean(%q) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseBooleanTerms(t *testing.T) {
	expr, err := ParseBoolean("a AND b OR c")
	if err != nil {
		t.Fatal(err)
	}
	if got := expr.Terms(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Terms() = %v", got)
	}
}

func TestParseBooleanInvalid(t *testing.T) {
	for _, q := range []string{"", "   ", "AND gato", "gato OR", "gato AND OR cachorro"} {
		t.Run(q, func(t *testing.T) {
			_, err := ParseBoolean(q)
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("ParseBoolean(%q) error = %v, want ErrInvalidInput", q, err)
			}
		})
	}
}
