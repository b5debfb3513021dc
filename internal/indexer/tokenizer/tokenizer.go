// Package tokenizer turns raw wiki article text into index tokens. It
// lower-cases input, strips wikimarkup (entities, templates and tags),
// splits on anything outside the accepted alphabet and removes stop-words.
// No stemming is applied.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	entityPattern   = regexp.MustCompile(`&.{2,4};`)
	pipePattern     = regexp.MustCompile(`\{\{!\}\}`)
	templatePattern = regexp.MustCompile(`\{\{.*?\}\}`)
	tagPattern      = regexp.MustCompile(`<.*?>`)
	foreignPattern  = regexp.MustCompile(`[^a-z0-9çáéíóúàãõâêô-]`)
)

// Tokenizer sanitizes text and drops configured stop-words.
type Tokenizer struct {
	stopWords map[string]struct{}
}

// New creates a Tokenizer that removes the given stop-words.
func New(stopWords []string) *Tokenizer {
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[w] = struct{}{}
	}
	return &Tokenizer{stopWords: set}
}

// LoadStopwords reads a whitespace separated stop-word list from path.
func LoadStopwords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file: %w", err)
	}
	defer f.Close()
	return ReadStopwords(f)
}

// ReadStopwords reads a whitespace separated stop-word list.
func ReadStopwords(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	words := make([]string, 0, 256)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords: %w", err)
	}
	return words, nil
}

// Tokenize sanitizes text and returns its tokens in order with stop-words
// removed.
func (t *Tokenizer) Tokenize(text string) []string {
	words := strings.Fields(Sanitize(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if t.IsStopWord(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// IsStopWord reports whether word is in the stop-word list.
func (t *Tokenizer) IsStopWord(word string) bool {
	_, ok := t.stopWords[word]
	return ok
}

// StopWordCount returns the number of distinct stop-words.
func (t *Tokenizer) StopWordCount() int {
	return len(t.stopWords)
}

// Sanitize lower-cases text and strips wikimarkup, leaving only accepted
// characters separated by spaces.
func Sanitize(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))
	text = entityPattern.ReplaceAllString(text, " ")
	text = pipePattern.ReplaceAllString(text, " ")
	text = templatePattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	return foreignPattern.ReplaceAllString(text, " ")
}

// Normalize prepares a single search term for lookup.
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
