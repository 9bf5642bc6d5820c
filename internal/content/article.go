package content

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Article is a single document from the posts collection. ID is the document
// key the store looks it up by; stores that key on the slug leave it empty.
type Article struct {
	ID      string `yaml:"id,omitempty"`
	Slug    string `yaml:"slug"`
	Section string `yaml:"section"`
	Title   string `yaml:"title"`
	URL     string `yaml:"url"`
	What    string `yaml:"what"`
	Why     string `yaml:"why"`
	Content string `yaml:"content"`
}

// Valid reports whether the document carries an identifying slug.
func (a Article) Valid() bool {
	return a.Slug != ""
}

// Key returns the lookup key of the document.
func (a Article) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Slug
}

// Section is a run of articles sharing the same section name.
type Section struct {
	Name     string
	Articles []Article
}

// GroupBySection groups articles by their Section field. Groups are ordered by
// first appearance and members keep their input order.
func GroupBySection(articles []Article) []Section {
	index := make(map[string]int)
	var sections []Section
	for _, a := range articles {
		i, ok := index[a.Section]
		if !ok {
			i = len(sections)
			index[a.Section] = i
			sections = append(sections, Section{Name: a.Section})
		}
		sections[i].Articles = append(sections[i].Articles, a)
	}
	return sections
}

// ErrInvalidSlug is returned by CleanSlug for values that can never name a document.
var ErrInvalidSlug = errors.New("invalid slug")

// CleanSlug prepares a slug taken from a URL for a document lookup. Case and
// punctuation are preserved because document keys are matched exactly.
func CleanSlug(input string) (string, error) {
	// chains carry state, so each call gets its own
	cleaner := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(unicode.IsControl)))
	cleaned, _, err := transform.String(cleaner, strings.TrimSpace(input))
	if err != nil {
		return "", err
	}

	switch {
	case cleaned == "", cleaned == ".", cleaned == "..":
		return "", ErrInvalidSlug
	case strings.ContainsAny(cleaned, "/\\?#"):
		return "", ErrInvalidSlug
	case strings.HasPrefix(cleaned, "__") && strings.HasSuffix(cleaned, "__"):
		// reserved by Firestore
		return "", ErrInvalidSlug
	}

	return cleaned, nil
}

// fromFields decodes a loosely typed document. Missing or non-string fields
// are left empty.
func fromFields(fields map[string]any) Article {
	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}
	return Article{
		Slug:    str("slug"),
		Section: str("section"),
		Title:   str("title"),
		URL:     str("url"),
		What:    str("what"),
		Why:     str("why"),
		Content: str("content"),
	}
}
