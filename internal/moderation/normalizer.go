package moderation

import (
	"log"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/barmart/marketplace/internal/metrics"
)

const (
	// bulletMaxLen is the rune-length ceiling for the list heuristic.
	// Paragraphs at or above this length are treated as prose even when
	// comma-dense, so sentences that merely contain several commas are
	// never mangled into bullets.
	bulletMaxLen = 100

	// bulletMinItems is the minimum number of comma-separated items for
	// a paragraph to be re-rendered as a bullet list.
	bulletMinItems = 3
)

var (
	paragraphSplit = regexp.MustCompile(`\n+`)

	// multiSpace collapses runs of plain spaces only. Newlines are
	// excluded so paragraph breaks and bullet lines survive the pass.
	multiSpace = regexp.MustCompile(` {2,}`)
)

// corrections is the fixed set of informal-English fixes applied as
// whole-word literal substitutions. It is not a spell-checker; do not
// grow this list casually.
var corrections = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bi\b`), "I"},
	{regexp.MustCompile(`\bim\b`), "I'm"},
	{regexp.MustCompile(`\bdont\b`), "don't"},
	{regexp.MustCompile(`\bwont\b`), "won't"},
}

// Normalize cosmetically cleans a listing description: sentence
// capitalization, paragraph segmentation, comma-list-to-bullet
// conversion, whitespace cleanup, and a small fixed set of informal
// contraction fixes.
//
// Normalization is a cosmetic enhancement, never a correctness step,
// so the function fails open: if anything inside panics, the original
// input is returned unchanged. Callers are expected to run the
// detector first; Normalize itself does no moderation.
func Normalize(description string) string {
	return failOpen(description, normalize)
}

// failOpen runs fn(input) and converts any panic into the original
// input. The worst user-visible outcome of a normalizer bug is a
// description saved without cleanup.
func failOpen(input string, fn func(string) string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[moderation] normalize panic: %v (returning input unchanged)", r)
			metrics.NormalizerFailOpens.Inc()
			out = input
		}
	}()
	return fn(input)
}

func normalize(description string) string {
	if description == "" {
		return ""
	}

	// The correction pass runs before capitalization so a
	// sentence-initial "im" still becomes "I'm" rather than being
	// capitalized into "Im" first and missed by the lowercase pattern.
	// Word-boundary substitution is position independent, so the
	// mid-sentence results are identical either way.
	text := description
	for _, c := range corrections {
		text = c.pattern.ReplaceAllString(text, c.replacement)
	}

	paragraphs := paragraphSplit.Split(text, -1)

	cleaned := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		sentences := splitSentences(p)
		for i, s := range sentences {
			sentences[i] = capitalizeFirst(s)
		}
		joined := strings.TrimSpace(strings.Join(sentences, " "))
		if joined == "" {
			continue
		}
		cleaned = append(cleaned, bulletize(joined))
	}

	result := strings.Join(cleaned, "\n\n")
	return multiSpace.ReplaceAllString(result, " ")
}

// splitSentences splits a paragraph on whitespace that follows
// sentence-terminal punctuation, keeping the punctuation attached to
// the preceding sentence. Go's regexp package (RE2) does not support
// lookbehind, so this is a simple linear scan.
func splitSentences(p string) []string {
	var sentences []string
	start := 0
	gapStart := -1
	for i, r := range p {
		if gapStart >= 0 {
			if !unicode.IsSpace(r) {
				sentences = append(sentences, p[start:gapStart])
				start = i
				gapStart = -1
			}
			continue
		}
		if r == '.' || r == '!' || r == '?' {
			// Peek: only a whitespace run after the terminator ends the
			// sentence. "3.14" and "bar-mart.com" stay intact.
			next := i + utf8.RuneLen(r)
			if next < len(p) {
				if nr, _ := utf8.DecodeRuneInString(p[next:]); unicode.IsSpace(nr) {
					gapStart = next
				}
			}
		}
	}
	if gapStart >= 0 {
		sentences = append(sentences, p[start:gapStart])
	} else if start < len(p) {
		sentences = append(sentences, p[start:])
	}
	return sentences
}

// capitalizeFirst upper-cases the first alphabetic character of s,
// leaving everything else untouched.
func capitalizeFirst(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsUpper(r) {
				return s
			}
			return s[:i] + string(unicode.ToUpper(r)) + s[i+utf8.RuneLen(r):]
		}
	}
	return s
}

// bulletize re-renders a short, comma-dense paragraph as a bullet list,
// one "• " line per trimmed item. This is a heuristic, not grammatical
// analysis: short paragraphs with three or more comma-separated items
// are assumed to be enumerations.
func bulletize(p string) string {
	if !strings.Contains(p, ",") {
		return p
	}
	if utf8.RuneCountInString(p) >= bulletMaxLen {
		return p
	}
	items := strings.Split(p, ",")
	if len(items) < bulletMinItems {
		return p
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "• "+strings.TrimSpace(item))
	}
	return strings.Join(lines, "\n")
}
