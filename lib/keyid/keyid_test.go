// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package keyid

import (
	"strings"
	"testing"
)

func TestWords(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"A Grammar of Warlpiri", "a grammar of warlpiri"},
		{"The {IPA} chart, 2005 revision", "the ipa chart 2005 revision"},
		{"", ""},
		{"---", ""},
	}
	for _, test := range tests {
		got := strings.Join(Words(test.text), " ")
		if got != test.want {
			t.Errorf("Words(%q) = %q, want %q", test.text, got, test.want)
		}
	}
}

func corpusFrequencies() *Frequencies {
	freq := NewFrequencies()
	for _, title := range []string{
		"A Grammar of Warlpiri",
		"A Grammar of Diyari",
		"A Grammar of Martuthunira",
		"Grammar sketches of the Pilbara region",
	} {
		freq.Add(title)
	}
	return freq
}

func TestFrequencies(t *testing.T) {
	freq := corpusFrequencies()

	if got := freq.Count("grammar"); got != 4 {
		t.Errorf("Count(grammar) = %d, want 4", got)
	}
	if got := freq.Count("warlpiri"); got != 1 {
		t.Errorf("Count(warlpiri) = %d, want 1", got)
	}
	if freq.Distinct() == 0 || freq.Tokens() == 0 {
		t.Errorf("Distinct=%d Tokens=%d, want both > 0", freq.Distinct(), freq.Tokens())
	}
}

func TestKeyPicksRarestTitleWord(t *testing.T) {
	freq := corpusFrequencies()

	key := Key(map[string]string{
		"author": "Doe, John",
		"year":   "2001",
		"title":  "A Grammar of Warlpiri",
	}, freq)

	if key != "doe:2001:warlpiri" {
		t.Errorf("Key = %q, want %q", key, "doe:2001:warlpiri")
	}
}

func TestKeyStableUnderCosmeticDifferences(t *testing.T) {
	freq := corpusFrequencies()

	left := Key(map[string]string{
		"author": "Doe, John",
		"year":   "2001",
		"title":  "A Grammar of Warlpiri",
		"note":   "second printing",
	}, freq)
	right := Key(map[string]string{
		"author": "John Doe",
		"year":   "2001 [reprint]",
		"title":  "A grammar of {Warlpiri}",
	}, freq)

	if left != right {
		t.Errorf("cosmetically different entries got distinct keys: %q vs %q", left, right)
	}
}

func TestKeyMultipleCreators(t *testing.T) {
	freq := NewFrequencies()

	key := Key(map[string]string{
		"author": "Roe, Richard and Doe, John",
		"year":   "1987",
		"title":  "Notes",
	}, freq)

	// Families are sorted, so creator order does not matter.
	if !strings.HasPrefix(key, "doe-roe:1987:") {
		t.Errorf("Key = %q, want doe-roe:1987: prefix", key)
	}
}

func TestKeyEditorFallback(t *testing.T) {
	freq := NewFrequencies()

	key := Key(map[string]string{
		"editor": "Doe, John",
		"year":   "1999",
	}, freq)

	if key != "doe:1999:" {
		t.Errorf("Key = %q, want %q", key, "doe:1999:")
	}
}

func TestKeyPartialSegmentsDoNotCollide(t *testing.T) {
	freq := NewFrequencies()

	onlyYear := Key(map[string]string{"year": "1999"}, freq)
	onlyTitle := Key(map[string]string{"title": "1999"}, freq)

	if onlyYear == onlyTitle {
		t.Errorf("year-only and title-only keys collide: %q", onlyYear)
	}
}

func TestKeyFallbackDigest(t *testing.T) {
	freq := NewFrequencies()

	fields := map[string]string{
		"entry_type": "misc",
		"note":       "an anonymous undated note",
	}

	key := Key(fields, freq)
	if !strings.HasPrefix(key, "x") || strings.Contains(key, ":") {
		t.Errorf("fallback key = %q, want x-prefixed digest without colons", key)
	}

	// Deterministic.
	if again := Key(fields, freq); again != key {
		t.Errorf("fallback key not deterministic: %q vs %q", key, again)
	}

	// Sensitive to content.
	fields["note"] = "a different note"
	if changed := Key(fields, freq); changed == key {
		t.Error("fallback key did not change with field content")
	}
}
