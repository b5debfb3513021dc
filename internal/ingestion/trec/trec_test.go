package trec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/searchlab/termindex/pkg/errors"
)

const sampleDump = `<?xml version="1.0" encoding="UTF-8"?>
<DOCS>
  <DOC>
    <DOCNO>1</DOCNO>
    <HEADLINE>Gato</HEADLINE>
    <P>O gato &lt;b&gt;doméstico&lt;/b&gt; &amp; o cachorro</P>
  </DOC>
  <DOC>
    <DOCNO> 2 </DOCNO>
    <P>Cachorro e pássaro&nbsp;{{Info}}</P>
  </DOC>
</DOCS>`

func TestParse(t *testing.T) {
	docs, err := Parse(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].ID != "1" || docs[0].Title != "Gato" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if !strings.Contains(docs[0].Text, "<b>doméstico</b>") {
		t.Errorf("escaped markup should be decoded, got %q", docs[0].Text)
	}
	if docs[1].ID != "2" {
		t.Errorf("DOCNO should be trimmed, got %q", docs[1].ID)
	}
	if docs[1].Title != "" {
		t.Errorf("missing HEADLINE should be empty, got %q", docs[1].Title)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing docno", `<DOCS><DOC><P>texto</P></DOC></DOCS>`},
		{"duplicate docno", `<DOCS><DOC><DOCNO>1</DOCNO><P>a</P></DOC><DOC><DOCNO>1</DOCNO><P>b</P></DOC></DOCS>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			if !errors.Is(err, apperrors.ErrMalformedInput) {
				t.Errorf("Parse() error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.xml")
	if err := os.WriteFile(path, []byte(sampleDump), 0o644); err != nil {
		t.Fatal(err)
	}
	docs, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d docs, want 2", len(docs))
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("expected error for missing file")
	}
}
