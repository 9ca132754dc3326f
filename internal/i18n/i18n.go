// Package i18n serves the English and Malayalam string tables.
package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Language string

const (
	English   Language = "en"
	Malayalam Language = "ml"
)

//go:embed translations.yml
var translationsYAML []byte

var matcher = language.NewMatcher([]language.Tag{language.English, language.Malayalam})

// Catalog holds one nested dictionary per language.
type Catalog struct {
	dictionaries map[Language]map[string]any
}

// Load parses the embedded translation table.
func Load() (*Catalog, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(translationsYAML, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode translations: %w", err)
	}
	c := &Catalog{dictionaries: make(map[Language]map[string]any, len(raw))}
	for lang, dict := range raw {
		c.dictionaries[Language(lang)] = dict
	}
	if _, ok := c.dictionaries[English]; !ok {
		return nil, fmt.Errorf("translations: missing %q dictionary", English)
	}
	return c, nil
}

// ParseLanguage picks a supported language from an Accept-Language header or a bare tag.
func ParseLanguage(header string) Language {
	if strings.TrimSpace(header) == "" {
		return English
	}
	tag, _ := language.MatchStrings(matcher, header)
	if base, _ := tag.Base(); base.String() == string(Malayalam) {
		return Malayalam
	}
	return English
}

// Supported reports whether lang has a dictionary.
func (c *Catalog) Supported(lang Language) bool {
	_, ok := c.dictionaries[lang]
	return ok
}

// Dictionary returns the full nested table of lang.
func (c *Catalog) Dictionary(lang Language) (map[string]any, bool) {
	d, ok := c.dictionaries[lang]
	return d, ok
}

// T resolves a dotted key such as "status.inProgress". Missing keys fall back
// to English and then to the key itself.
func (c *Catalog) T(lang Language, key string) string {
	if s, ok := lookup(c.dictionaries[lang], key); ok {
		return s
	}
	if s, ok := lookup(c.dictionaries[English], key); ok {
		return s
	}
	return key
}

func lookup(dict map[string]any, key string) (string, bool) {
	var node any = dict
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		node, ok = m[part]
		if !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok
}
