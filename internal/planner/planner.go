// Package planner builds the ordered list of query variants tried when a
// search comes back short.
package planner

import (
	"fmt"
	"strings"
	"unicode"

	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/textnorm"
)

// Attempt labels.
const (
	LabelPrimary    = "A"
	LabelMechanical = "B"
	LabelAlias      = "C"
)

// Attempt is one concrete query to try.
type Attempt struct {
	Label       string
	Query       string
	Description string
	Strategy    string
}

// AliasLookup resolves a query to its canonical avatar name.
type AliasLookup interface {
	Resolve(query string) (string, bool)
}

// Options controls attempt generation.
type Options struct {
	NormalizeEnabled bool
	AllowMulti       bool
	MaxAttempts      int
}

// Planner builds attempt lists. It holds no mutable state.
type Planner struct {
	aliases AliasLookup
}

// New creates a Planner. aliases may be nil, which disables alias attempts.
func New(aliases AliasLookup) *Planner {
	return &Planner{aliases: aliases}
}

type candidate struct {
	query   string
	changed bool
}

// BuildAttempts returns at most opts.MaxAttempts attempts in fixed order:
//
//	A  primary candidate (normalized when enabled)
//	B  A without spaces, or A wrapped in quotes when it has none
//	C  canonical alias of A
//	A  each remaining multi-input candidate
//
// Duplicate queries are dropped keeping the first occurrence. The primary
// candidate is always the first one in input order.
func (p *Planner) BuildAttempts(raw string, opts Options) []Attempt {
	if opts.MaxAttempts <= 0 {
		return []Attempt{}
	}

	candidates := p.candidates(raw, opts)
	if len(candidates) == 0 {
		return []Attempt{}
	}

	total := len(candidates)
	primary := candidates[0]

	attempts := make([]Attempt, 0, opts.MaxAttempts+2)
	attempts = append(attempts, primaryAttempt(primary, total))

	if b, ok := mechanicalAttempt(primary.query); ok {
		attempts = append(attempts, b)
	}

	if opts.NormalizeEnabled && p.aliases != nil {
		if canonical, ok := p.aliases.Resolve(primary.query); ok && canonical != primary.query {
			attempts = append(attempts, Attempt{
				Label:       LabelAlias,
				Query:       canonical,
				Description: fmt.Sprintf("alias resolved: %s -> %s", primary.query, canonical),
				Strategy:    domain.StrategyAlias,
			})
		}
	}

	if opts.AllowMulti {
		for i := 1; i < total && len(attempts) < opts.MaxAttempts; i++ {
			attempts = append(attempts, Attempt{
				Label:       LabelPrimary,
				Query:       candidates[i].query,
				Description: fmt.Sprintf("multi-input candidate %d of %d", i+1, total),
				Strategy:    domain.StrategyMulti,
			})
		}
	}

	return truncate(Dedupe(attempts), opts.MaxAttempts)
}

func (p *Planner) candidates(raw string, opts Options) []candidate {
	var parts []string
	if opts.AllowMulti {
		parts = textnorm.SplitMulti(raw)
	}
	if len(parts) == 0 {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			parts = []string{trimmed}
		}
	}

	seen := make(map[string]struct{}, len(parts))
	out := make([]candidate, 0, len(parts))
	for _, part := range parts {
		query := strings.TrimSpace(part)
		if opts.NormalizeEnabled {
			query = textnorm.Normalize(part)
		}
		if query == "" {
			continue
		}

		key := textnorm.Normalize(query)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, candidate{query: query, changed: query != strings.TrimSpace(part)})
	}

	return out
}

func primaryAttempt(c candidate, total int) Attempt {
	var notes []string
	if total > 1 {
		notes = append(notes, fmt.Sprintf("multi-input candidate 1 of %d selected", total))
	}
	if c.changed {
		notes = append(notes, "normalization applied")
	}

	strategy := domain.StrategyOriginal
	if c.changed {
		strategy = domain.StrategyNormalized
	}

	return Attempt{
		Label:       LabelPrimary,
		Query:       c.query,
		Description: strings.Join(notes, ", "),
		Strategy:    strategy,
	}
}

func mechanicalAttempt(query string) (Attempt, bool) {
	if strings.ContainsFunc(query, unicode.IsSpace) {
		stripped := textnorm.RemoveSpaces(query)
		if stripped != "" && stripped != query {
			return Attempt{
				Label:       LabelMechanical,
				Query:       stripped,
				Description: "spaces removed",
				Strategy:    domain.StrategyNoSpace,
			}, true
		}
		return Attempt{}, false
	}

	if strings.HasPrefix(query, `"`) && strings.HasSuffix(query, `"`) && len(query) >= 2 {
		return Attempt{}, false
	}
	quoted := `"` + query + `"`
	return Attempt{
		Label:       LabelMechanical,
		Query:       quoted,
		Description: "exact phrase",
		Strategy:    domain.StrategyQuoted,
	}, true
}

// Dedupe drops attempts whose query was already seen, keeping order.
func Dedupe(attempts []Attempt) []Attempt {
	seen := make(map[string]struct{}, len(attempts))
	out := make([]Attempt, 0, len(attempts))
	for _, a := range attempts {
		if _, dup := seen[a.Query]; dup {
			continue
		}
		seen[a.Query] = struct{}{}
		out = append(out, a)
	}
	return out
}

func truncate(attempts []Attempt, n int) []Attempt {
	if len(attempts) > n {
		return attempts[:n]
	}
	return attempts
}
