// Package channel maps product SKUs to destination chat channels.
package channel

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// NormalizeSKU folds case, drops whitespace and punctuation. "AB-12 x" and "ab12x" share a key.
func NormalizeSKU(sku string) string {
	s := norm.NFKC.String(strings.TrimSpace(sku))
	s = cases.Fold().String(s)
	return nonWord.ReplaceAllString(s, "")
}

type Entry struct {
	SKU       string
	ChannelID string
}

// Mapping resolves normalized SKUs to channel IDs. The zero value is an empty mapping.
type Mapping struct {
	byKey map[string]string
}

func NewMapping(entries []Entry) Mapping {
	m := Mapping{byKey: make(map[string]string, len(entries))}
	for _, e := range entries {
		key := NormalizeSKU(e.SKU)
		id := strings.TrimSpace(e.ChannelID)
		if key == "" || id == "" {
			continue
		}
		if _, dup := m.byKey[key]; dup {
			continue
		}
		m.byKey[key] = id
	}
	return m
}

// Lookup accepts a raw or normalized SKU.
func (m Mapping) Lookup(sku string) (string, bool) {
	key := NormalizeSKU(sku)
	if key == "" {
		return "", false
	}
	id, ok := m.byKey[key]
	return id, ok
}

func (m Mapping) Len() int {
	return len(m.byKey)
}

// MatchesChannel reports whether a channel name identifies the given SKU.
func MatchesChannel(channelName, sku string) bool {
	key := NormalizeSKU(sku)
	return key != "" && NormalizeSKU(channelName) == key
}
