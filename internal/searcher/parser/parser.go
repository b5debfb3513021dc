package parser

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/searchlab/termindex/internal/indexer/tokenizer"
	"github.com/searchlab/termindex/internal/searcher/ranker"
	apperrors "github.com/searchlab/termindex/pkg/errors"
)

// ParseQueryFile reads one ranked query per line from path.
func ParseQueryFile(path string) ([]ranker.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()
	return ReadQueries(f)
}

// ReadQueries splits r on newlines; every line is one query of
// whitespace-separated terms. The empty tail after the final newline is not a
// query. Blank lines in the middle are kept as empty queries so query numbers
// match line numbers.
func ReadQueries(r io.Reader) ([]ranker.Query, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	lines := strings.Split(string(data), "\n")
	if last := len(lines) - 1; strings.TrimSpace(lines[last]) == "" {
		lines = lines[:last]
	}
	queries := make([]ranker.Query, 0, len(lines))
	for _, line := range lines {
		queries = append(queries, ParseRanked(line))
	}
	return queries, nil
}

// ParseRanked splits a free-text query into lower-cased terms.
func ParseRanked(text string) ranker.Query {
	fields := strings.Fields(text)
	q := make(ranker.Query, 0, len(fields))
	for _, f := range fields {
		q = append(q, tokenizer.Normalize(f))
	}
	return q
}

type Op int

const (
	OpTerm Op = iota
	OpAND
	OpOR
)

func (o Op) String() string {
	switch o {
	case OpAND:
		return "AND"
	case OpOR:
		return "OR"
	default:
		return "TERM"
	}
}

// Expr is a node of a boolean query. Leaves carry Term; inner nodes combine
// Left and Right with Op.
type Expr struct {
	Op    Op
	Term  string
	Left  *Expr
	Right *Expr
}

// Terms returns the leaf terms left to right.
func (e *Expr) Terms() []string {
	if e.Op == OpTerm {
		return []string{e.Term}
	}
	return append(e.Left.Terms(), e.Right.Terms()...)
}

func (e *Expr) String() string {
	if e.Op == OpTerm {
		return e.Term
	}
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// ParseBoolean parses terms joined by AND / OR (case-insensitive). Operators
// have equal precedence and associate left, and adjacent terms are joined
// with an implicit AND: "a b OR c" is ((a AND b) OR c).
func ParseBoolean(query string) (*Expr, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "empty boolean query")
	}

	var root *Expr
	pending := OpAND
	expectTerm := true
	for _, word := range words {
		switch strings.ToUpper(word) {
		case "AND", "OR":
			if expectTerm {
				return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "operator %q without left operand", word)
			}
			if strings.EqualFold(word, "OR") {
				pending = OpOR
			} else {
				pending = OpAND
			}
			expectTerm = true
			continue
		}
		leaf := &Expr{Op: OpTerm, Term: tokenizer.Normalize(word)}
		if root == nil {
			root = leaf
		} else {
			root = &Expr{Op: pending, Left: root, Right: leaf}
		}
		pending = OpAND
		expectTerm = false
	}
	if expectTerm {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "boolean query ends with an operator")
	}
	return root, nil
}
