// Package classify assigns fills to categories by matching the fill
// description against each category's learned aliases.
//
// Aliases are case-insensitive patterns anchored at the start of the
// description. The first category, in repository order, with a matching
// alias wins; ordering between categories whose aliases overlap is whatever
// the repository returns. The default category is never matched and is
// returned when nothing else fits.
//
// Classification reads categories fresh on every call, so an alias learned
// concurrently may or may not be seen by a classification already running.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"cardfill/internal/cache"
	"cardfill/internal/core"
	"cardfill/internal/ports"
)

const patternCacheSize = 1024

// Classifier maps descriptions to categories and learns new aliases.
type Classifier struct {
	categories ports.CategoryRepository
	patterns   *cache.LRUCache[matcher]
}

// matcher prefix-matches the lower-cased alias literally and, when the
// alias compiles, as a pattern. Learned aliases are raw descriptions, so
// "taxi (home)" must still match itself.
type matcher struct {
	re      *regexp.Regexp
	literal string
}

func New(categories ports.CategoryRepository) *Classifier {
	return &Classifier{
		categories: categories,
		patterns:   cache.NewLRUCache[matcher](patternCacheSize, 0),
	}
}

// Classify returns the category for description, defaulting to OTHER.
func (c *Classifier) Classify(ctx context.Context, description string) (core.Category, error) {
	cats, err := c.categories.ListCategories(ctx)
	if err != nil {
		return core.Category{}, err
	}

	var fallback *core.Category
	for i := range cats {
		cat := cats[i]
		if cat.IsDefault() {
			fallback = &cats[i]
			continue
		}
		if c.Matches(cat, description) {
			slog.DebugContext(ctx, "Fill classified by alias",
				"component", "classify",
				"category", cat.Code,
				"description", description)
			return cat, nil
		}
	}

	if fallback != nil {
		return *fallback, nil
	}
	return c.categories.GetCategory(ctx, core.DefaultCategoryCode)
}

// Matches reports whether any alias of cat matches the start of description.
// The default category never matches.
func (c *Classifier) Matches(cat core.Category, description string) bool {
	if cat.IsDefault() {
		return false
	}
	for _, alias := range cat.Aliases {
		if alias == "" {
			continue
		}
		if c.matcherFor(alias).match(description) {
			return true
		}
	}
	return false
}

// LearnAlias appends the lower-cased text to the category's aliases.
// Empty text and the default category are ignored.
func (c *Classifier) LearnAlias(ctx context.Context, code, text string) error {
	alias := strings.ToLower(strings.TrimSpace(text))
	if alias == "" || code == core.DefaultCategoryCode {
		return nil
	}
	if code == "" {
		return errors.New("learn alias: empty category code")
	}
	if err := c.categories.AddAlias(ctx, code, alias); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Alias learned",
		"component", "classify",
		"category", code,
		"alias", alias)
	return nil
}

func (c *Classifier) matcherFor(alias string) matcher {
	m, _ := c.patterns.GetOrLoad(alias, func() (matcher, error) {
		return compileAlias(alias), nil
	})
	return m
}

func compileAlias(alias string) matcher {
	m := matcher{literal: strings.ToLower(alias)}
	if re, err := regexp.Compile(`(?i)^(?:` + alias + `)`); err == nil {
		m.re = re
	}
	return m
}

func (m matcher) match(description string) bool {
	if strings.HasPrefix(strings.ToLower(description), m.literal) {
		return true
	}
	return m.re != nil && m.re.MatchString(description)
}
