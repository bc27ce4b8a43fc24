// Package wordcount implements the word-count mapper: text is normalized,
// lowercased and split into word tokens, each emitted with a count of one.
package wordcount

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/nemanja-m/wordfreq/pkg/core"
)

// Tokenizer splits text into word tokens. Input is NFC-normalized and
// lowercased with root-locale casing rules. Letters, numbers and '_' form
// words; whitespace separates them and every other rune is replaced by a
// space. Invalid UTF-8 decodes to U+FFFD, which is not a word rune, so broken
// byte sequences act as separators.
//
// A Tokenizer keeps casing state and must not be shared between goroutines.
type Tokenizer struct {
	lower cases.Caser
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{lower: cases.Lower(language.Und)}
}

// Tokens returns the word tokens of text in left-to-right order.
func (t *Tokenizer) Tokens(text string) []string {
	normalized := t.lower.String(norm.NFC.String(text))
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, normalized)
	return strings.Fields(cleaned)
}

// Map emits (token, 1) for every token of line.
func (t *Tokenizer) Map(line string) []core.Emission {
	tokens := t.Tokens(line)
	if len(tokens) == 0 {
		return nil
	}
	emissions := make([]core.Emission, 0, len(tokens))
	for _, token := range tokens {
		emissions = append(emissions, core.Emission{Key: token, Value: 1})
	}
	return emissions
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
