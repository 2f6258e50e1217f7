// Package i18n renders the engine's player-facing strings from embedded
// locale catalogs.
//
// Catalogs are flat YAML key/template maps, one file per locale. Lookups
// match arbitrary BCP 47 inputs against the available locales and fall back
// to English for missing keys.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en"

//go:embed locales/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoadEmbedded()

// Bundle holds all loaded locale catalogs.
type Bundle struct {
	matcher  language.Matcher
	locales  []string
	messages map[string]map[string]string
}

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locale catalogs from the provided filesystem. File names
// are locale codes: locales/en.yaml, locales/ru.yaml.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale catalogs found")
	}
	sort.Strings(paths)

	bundle := &Bundle{messages: make(map[string]map[string]string)}
	var tags []language.Tag

	for _, filePath := range paths {
		locale := strings.TrimSuffix(path.Base(filePath), ".yaml")
		raw, err := fs.ReadFile(catalogFS, filePath)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", filePath, err)
		}

		catalog := make(map[string]string)
		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("decode catalog %s: %w", filePath, err)
		}

		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", locale, err)
		}

		bundle.messages[locale] = catalog
		bundle.locales = append(bundle.locales, locale)
		tags = append(tags, tag)
	}

	if _, ok := bundle.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s catalog is required", BaseLocale)
	}

	// The matcher prefers the base locale when nothing else matches.
	ordered := []language.Tag{language.MustParse(BaseLocale)}
	orderedLocales := []string{BaseLocale}
	for i, locale := range bundle.locales {
		if locale == BaseLocale {
			continue
		}
		ordered = append(ordered, tags[i])
		orderedLocales = append(orderedLocales, locale)
	}
	bundle.locales = orderedLocales
	bundle.matcher = language.NewMatcher(ordered)

	return bundle, nil
}

// T renders the template for key in the best-matching locale, applying
// fmt-style args when provided. Missing keys fall back to the base locale;
// a key missing everywhere renders as the key itself.
func (b *Bundle) T(locale, key string, args ...any) string {
	_, index := language.MatchStrings(b.matcher, locale)
	resolved := b.locales[index]

	template, ok := b.messages[resolved][key]
	if !ok {
		template, ok = b.messages[BaseLocale][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

func mustLoadEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(fmt.Sprintf("load embedded locale catalogs: %v", err))
	}
	return bundle
}
