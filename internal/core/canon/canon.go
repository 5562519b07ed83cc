// Package canon provides the deterministic text canonicalizer that feeds
// content hashing and term matching.
//
// Pipeline order for Text
//  1. UTF-8 repair drop invalid bytes
//  2. Unicode NFKC normalization
//  3. Remove format runes ZWJ ZWNJ FEFF etc
//  4. Collapse whitespace runs to single spaces and trim
//
// Fold adds Unicode case folding and width folding on top, for
// case-insensitive term matching. Hashes are built on Text, not Fold, so a
// source flipping letter case still reads as a change.
package canon

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pools of fresh transformer chains; transform.Chain values are stateful
var (
	textChain = sync.Pool{
		New: func() any {
			return transform.Chain(
				norm.NFKC,
				runes.Remove(runes.In(unicode.Cf)),
			)
		},
	}
	foldChain = sync.Pool{
		New: func() any {
			return transform.Chain(
				norm.NFKC,
				cases.Fold(),
				runes.Remove(runes.In(unicode.Cf)),
				width.Fold,
			)
		},
	}
)

// Text returns the canonical form of s following the pipeline above
func Text(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpaces(apply(&textChain, strings.ToValidUTF8(s, "")))
}

// Fold returns the canonical case-folded form of s for matching
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpaces(apply(&foldChain, strings.ToValidUTF8(s, "")))
}

func apply(pool *sync.Pool, s string) string {
	tr := pool.Get().(transform.Transformer)
	out, _, _ := transform.String(tr, s)
	tr.Reset()
	pool.Put(tr)
	return out
}

// collapseSpaces converts every whitespace run to a single ASCII space and
// trims the edges. Hash inputs are single-field values, so line structure
// carries no meaning here
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
