// Package alias resolves avatar name spellings to their canonical names.
package alias

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed data/avatars.yaml
var bundledData []byte

// Entry is one avatar with the spellings that resolve to it.
type Entry struct {
	Canonical string   `yaml:"canonical"`
	NameKR    string   `yaml:"name_kr"`
	NameEN    string   `yaml:"name_en"`
	Popular   bool     `yaml:"popular"`
	Variants  []string `yaml:"variants"`
}

// DisplayName returns "canonical (korean)" when a Korean name is known.
func (e Entry) DisplayName() string {
	if e.NameKR == "" {
		return e.Canonical
	}
	return fmt.Sprintf("%s (%s)", e.Canonical, e.NameKR)
}

type dataset struct {
	Aliases []Entry `yaml:"aliases"`
}

// ParseEntries decodes a YAML alias dataset. Entries without a canonical name are dropped.
func ParseEntries(data []byte) ([]Entry, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decoding alias dataset: %w", err)
	}

	entries := make([]Entry, 0, len(ds.Aliases))
	for _, e := range ds.Aliases {
		e.Canonical = strings.TrimSpace(e.Canonical)
		if e.Canonical == "" {
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// LoadEntries loads the alias dataset. The user file at userPath wins when it
// exists and parses; otherwise the bundled dataset is used.
func LoadEntries(userPath string, logger *zap.Logger) ([]Entry, error) {
	if userPath != "" {
		data, err := os.ReadFile(userPath)
		switch {
		case err == nil:
			entries, perr := ParseEntries(data)
			if perr == nil {
				logger.Info("user alias dataset loaded",
					zap.String("path", userPath),
					zap.Int("entries", len(entries)),
				)
				return entries, nil
			}
			logger.Warn("user alias dataset invalid, using bundled",
				zap.String("path", userPath),
				zap.Error(perr),
			)
		case !errors.Is(err, os.ErrNotExist):
			logger.Warn("user alias dataset unreadable, using bundled",
				zap.String("path", userPath),
				zap.Error(err),
			)
		}
	}

	entries, err := ParseEntries(bundledData)
	if err != nil {
		return nil, fmt.Errorf("loading bundled aliases: %w", err)
	}

	logger.Debug("bundled alias dataset loaded", zap.Int("entries", len(entries)))

	return entries, nil
}

// BuildMap registers every canonical name and variant under its normalized
// form. The first registration of a normalized key wins; later collisions
// from other entries are ignored, so resolution depends on dataset order.
func BuildMap(entries []Entry, normalize func(string) string) map[string]string {
	m := make(map[string]string)

	for _, e := range entries {
		canonical := strings.TrimSpace(e.Canonical)
		if canonical == "" {
			continue
		}

		for _, spelling := range append([]string{canonical}, e.Variants...) {
			key := normalize(spelling)
			if key == "" {
				continue
			}
			if _, taken := m[key]; !taken {
				m[key] = canonical
			}
		}
	}

	return m
}

// Resolver looks up canonical avatar names.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	aliases   map[string]string
	entries   []Entry
	normalize func(string) string
}

// NewResolver builds a Resolver over entries.
func NewResolver(entries []Entry, normalize func(string) string) *Resolver {
	return &Resolver{
		aliases:   BuildMap(entries, normalize),
		entries:   append([]Entry(nil), entries...),
		normalize: normalize,
	}
}

// Resolve returns the canonical name for query, if any spelling matches.
func (r *Resolver) Resolve(query string) (string, bool) {
	canonical, ok := r.aliases[r.normalize(query)]
	return canonical, ok
}

// Len returns the number of registered spellings.
func (r *Resolver) Len() int {
	return len(r.aliases)
}

// Popular returns the entries flagged popular, in dataset order.
func (r *Resolver) Popular() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Popular {
			out = append(out, e)
		}
	}
	return out
}
