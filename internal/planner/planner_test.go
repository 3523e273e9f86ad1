package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/textnorm"
)

type mapAliases map[string]string

func (m mapAliases) Resolve(query string) (string, bool) {
	v, ok := m[textnorm.Normalize(query)]
	return v, ok
}

func queries(attempts []Attempt) []string {
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = a.Query
	}
	return out
}

func labels(attempts []Attempt) []string {
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = a.Label
	}
	return out
}

// TestBuildAttempts_Order tests the fixed A, B, C order.
func TestBuildAttempts_Order(t *testing.T) {
	p := New(mapAliases{"ききょう 衣装": "桔梗"})

	attempts := p.BuildAttempts("ききょう　衣装", Options{NormalizeEnabled: true, MaxAttempts: 3})

	require.Len(t, attempts, 3)
	assert.Equal(t, []string{"ききょう 衣装", "ききょう衣装", "桔梗"}, queries(attempts))
	assert.Equal(t, []string{"A", "B", "C"}, labels(attempts))
	assert.Equal(t, domain.StrategyNormalized, attempts[0].Strategy)
	assert.Equal(t, "normalization applied", attempts[0].Description)
	assert.Equal(t, domain.StrategyNoSpace, attempts[1].Strategy)
	assert.Equal(t, domain.StrategyAlias, attempts[2].Strategy)
}

// TestBuildAttempts_QuotedVariant tests the quote-wrapped B attempt.
func TestBuildAttempts_QuotedVariant(t *testing.T) {
	p := New(nil)

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single word", "桔梗", []string{"桔梗", `"桔梗"`}},
		{"already quoted", `"桔梗"`, []string{`"桔梗"`}},
		{"corner quotes normalized", "「桔梗」", []string{`"桔梗"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.BuildAttempts(tt.raw, Options{NormalizeEnabled: true, MaxAttempts: 3})
			assert.Equal(t, tt.want, queries(got))
		})
	}
}

// TestBuildAttempts_AliasRequiresNormalization tests that C is skipped when normalization is off.
func TestBuildAttempts_AliasRequiresNormalization(t *testing.T) {
	p := New(mapAliases{"kikyo": "桔梗"})

	with := p.BuildAttempts("kikyo", Options{NormalizeEnabled: true, MaxAttempts: 5})
	without := p.BuildAttempts("kikyo", Options{NormalizeEnabled: false, MaxAttempts: 5})

	assert.Equal(t, []string{"kikyo", `"kikyo"`, "桔梗"}, queries(with))
	assert.Equal(t, []string{"kikyo", `"kikyo"`}, queries(without))
	assert.Equal(t, domain.StrategyOriginal, without[0].Strategy)
	assert.Empty(t, without[0].Description)
}

// TestBuildAttempts_AliasSameAsQuery tests that an identity alias adds nothing.
func TestBuildAttempts_AliasSameAsQuery(t *testing.T) {
	p := New(mapAliases{"桔梗": "桔梗"})

	got := p.BuildAttempts("桔梗", Options{NormalizeEnabled: true, MaxAttempts: 5})

	assert.Equal(t, []string{"桔梗", `"桔梗"`}, queries(got))
}

// TestBuildAttempts_MultiCandidates tests multi-input splitting, dedup and the cap.
func TestBuildAttempts_MultiCandidates(t *testing.T) {
	p := New(nil)

	got := p.BuildAttempts("桔梗, マヌカ / ＡＢＣ ; 桔梗 | マヌカ", Options{
		NormalizeEnabled: true,
		AllowMulti:       true,
		MaxAttempts:      5,
	})

	assert.Equal(t, []string{"桔梗", `"桔梗"`, "マヌカ", "ABC"}, queries(got))
	assert.Equal(t, "multi-input candidate 1 of 3 selected", got[0].Description)
	assert.Equal(t, "multi-input candidate 2 of 3", got[2].Description)
	assert.Equal(t, domain.StrategyMulti, got[2].Strategy)
	assert.Equal(t, "A", got[3].Label)

	capped := p.BuildAttempts("桔梗, マヌカ, ABC", Options{NormalizeEnabled: true, AllowMulti: true, MaxAttempts: 3})
	assert.Equal(t, []string{"桔梗", `"桔梗"`, "マヌカ"}, queries(capped))
}

// TestBuildAttempts_PrimaryIsFirstInInputOrder tests that no heuristic reorders candidates.
func TestBuildAttempts_PrimaryIsFirstInInputOrder(t *testing.T) {
	p := New(nil)

	got := p.BuildAttempts("a\nlonger candidate", Options{AllowMulti: true, NormalizeEnabled: true, MaxAttempts: 3})

	require.NotEmpty(t, got)
	assert.Equal(t, "a", got[0].Query)
}

// TestBuildAttempts_MultiDisabledKeepsWholeString tests that delimiters are ignored without multi.
func TestBuildAttempts_MultiDisabledKeepsWholeString(t *testing.T) {
	p := New(nil)

	got := p.BuildAttempts("桔梗/マヌカ", Options{NormalizeEnabled: true, MaxAttempts: 3})

	assert.Equal(t, []string{"桔梗/マヌカ", `"桔梗/マヌカ"`}, queries(got))
}

// TestBuildAttempts_Edges tests empty input and non-positive caps.
func TestBuildAttempts_Edges(t *testing.T) {
	p := New(mapAliases{"x": "y"})

	assert.Empty(t, p.BuildAttempts("", Options{NormalizeEnabled: true, MaxAttempts: 3}))
	assert.Empty(t, p.BuildAttempts("   ", Options{NormalizeEnabled: true, MaxAttempts: 3}))
	assert.Empty(t, p.BuildAttempts("・・", Options{NormalizeEnabled: true, MaxAttempts: 3}))
	assert.Empty(t, p.BuildAttempts("x", Options{NormalizeEnabled: true, MaxAttempts: 0}))
	assert.Empty(t, p.BuildAttempts("x", Options{NormalizeEnabled: true, MaxAttempts: -1}))

	one := p.BuildAttempts("x", Options{NormalizeEnabled: true, MaxAttempts: 1})
	assert.Equal(t, []string{"x"}, queries(one))

	// separators only: falls back to the raw trimmed string
	sep := p.BuildAttempts(" ,, ", Options{AllowMulti: true, MaxAttempts: 3})
	assert.Equal(t, []string{",,", `",,"`}, queries(sep))
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]Attempt{{Query: "a"}, {Query: "b"}, {Query: "a", Label: "C"}})
	assert.Equal(t, []string{"a", "b"}, queries(got))
}
