// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyid derives grouping keys for bibliography entries.
//
// Two entries with the same key are treated as the same publication by
// the database layer, regardless of which .bib file or citation key
// they came from. The key is built from the fields that identify a
// publication — creator family names, publication year, and the most
// distinctive title word — so it is stable under the cosmetic
// differences that plague hand-curated bibliographies (reordered
// fields, citation-key renames, added annotations).
//
// Title-word selection needs corpus-wide word frequencies: "grammar"
// identifies nothing in a linguistics bibliography, while "warlpiri"
// identifies one language. Callers accumulate a [Frequencies] counter
// over every title in the collection before computing keys.
//
// Entries carrying none of the key fields fall back to a blake3 digest
// of all field values, keeping the key deterministic and non-empty
// without ever colliding with a field-derived key.
package keyid

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// wordPattern splits lowercased text into alphanumeric runs.
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// yearPattern finds a four-digit year anywhere in a year field, which
// accommodates values like "1999[2001]" or "ca. 1850".
var yearPattern = regexp.MustCompile(`[12]\d{3}`)

// Words tokenizes text into lowercase alphanumeric runs. Characters
// outside [a-z0-9] (punctuation, braces, TeX markup remnants) act as
// separators.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Frequencies counts title-word occurrences across a corpus.
// The zero value is not usable; call NewFrequencies.
type Frequencies struct {
	counts map[string]int
	tokens int
}

// NewFrequencies returns an empty counter.
func NewFrequencies() *Frequencies {
	return &Frequencies{counts: make(map[string]int)}
}

// Add tokenizes title and counts its words.
func (f *Frequencies) Add(title string) {
	for _, word := range Words(title) {
		f.counts[word]++
		f.tokens++
	}
}

// Count returns how often word occurs in the corpus.
func (f *Frequencies) Count(word string) int {
	return f.counts[word]
}

// Distinct returns the number of distinct words seen.
func (f *Frequencies) Distinct() int {
	return len(f.counts)
}

// Tokens returns the total number of word tokens counted.
func (f *Frequencies) Tokens() int {
	return f.tokens
}

// Key computes the grouping key for an entry's fields. fields maps
// lowercased field names to values and must include the entry type
// under the name used by the database ("entry_type"); the type does
// not influence the key but fallback digests cover all fields.
//
// The key has three colon-separated segments: creator family names
// (sorted, joined by "-"), four-digit year, and the title word with
// the lowest corpus frequency. Missing segments stay empty, so partial
// keys from different segments never collide with each other.
func Key(fields map[string]string, freq *Frequencies) string {
	families := familyNames(firstNonEmpty(fields["author"], fields["editor"]))
	year := extractYear(fields["year"])
	title := rarestWord(fields["title"], freq)

	if families == "" && year == "" && title == "" {
		return fallbackKey(fields)
	}
	return families + ":" + year + ":" + title
}

// familyNames extracts the family name of every creator from a BibTeX
// name list ("Doe, John and Roe, Richard"), lowercases and
// de-duplicates them, and joins them sorted with "-". Names without a
// comma use their last word as the family name.
func familyNames(nameList string) string {
	if nameList == "" {
		return ""
	}

	seen := make(map[string]bool)
	var families []string

	for _, name := range strings.Split(nameList, " and ") {
		var family string
		if comma := strings.IndexByte(name, ','); comma >= 0 {
			family = name[:comma]
		} else {
			words := strings.Fields(name)
			if len(words) == 0 {
				continue
			}
			family = words[len(words)-1]
		}

		tokens := Words(family)
		if len(tokens) == 0 {
			continue
		}
		joined := strings.Join(tokens, "")
		if !seen[joined] {
			seen[joined] = true
			families = append(families, joined)
		}
	}

	sort.Strings(families)
	return strings.Join(families, "-")
}

// extractYear returns the first four-digit year in the field value.
func extractYear(year string) string {
	return yearPattern.FindString(year)
}

// rarestWord picks the title token with the lowest corpus frequency;
// ties break alphabetically. Tokens unseen by the counter (possible
// when keys are computed for entries outside the indexed corpus)
// count as frequency zero, i.e. maximally distinctive.
func rarestWord(title string, freq *Frequencies) string {
	best := ""
	bestCount := 0
	for _, word := range Words(title) {
		count := freq.Count(word)
		if best == "" || count < bestCount || (count == bestCount && word < best) {
			best = word
			bestCount = count
		}
	}
	return best
}

// fallbackKey digests all field values for entries that carry none of
// the identifying fields. The "x" prefix cannot appear in a
// field-derived key (those always contain a colon), so the two key
// spaces are disjoint.
func fallbackKey(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	hasher := blake3.New()
	for _, name := range names {
		hasher.WriteString(name)
		hasher.WriteString("\x1f")
		hasher.WriteString(fields[name])
		hasher.WriteString("\x1e")
	}
	digest := hasher.Sum(nil)
	return fmt.Sprintf("x%x", digest[:8])
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
