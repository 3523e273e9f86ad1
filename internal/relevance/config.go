// Package relevance scores marketplace items against a target avatar name.
package relevance

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed data/relevance.yaml
var bundledConfig []byte

// Weights holds the score contribution of each signal.
type Weights struct {
	ExactTitleMatch  float64
	TokenMatch       float64
	PositiveKeyword  float64
	NegativeKeyword  float64
	UnrelatedKeyword float64
	RecentClickTitle float64
	RecentClickShop  float64
}

// Buckets holds the label thresholds.
type Buckets struct {
	Strong float64
	Medium float64
}

// Config is the complete scoring configuration.
type Config struct {
	PositiveKeywords  []string
	NegativeKeywords  []string
	UnrelatedKeywords []string
	Weights           Weights
	Buckets           Buckets
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		PositiveKeywords:  []string{"対応", "専用", "for", "対応品", "対応衣装"},
		NegativeKeywords:  []string{"汎用", "素体", "アバター不問", "generic"},
		UnrelatedKeywords: []string{"unity", "blender", "shader", "texture"},
		Weights: Weights{
			ExactTitleMatch:  50,
			TokenMatch:       10,
			PositiveKeyword:  5,
			NegativeKeyword:  -15,
			UnrelatedKeyword: -8,
			RecentClickTitle: 6,
			RecentClickShop:  4,
		},
		Buckets: Buckets{
			Strong: 60,
			Medium: 30,
		},
	}
}

// Overrides is the on-disk form of a partial configuration.
// A nil pointer or empty list means "keep the base value".
type Overrides struct {
	PositiveKeywords  []string         `yaml:"positive_keywords"`
	NegativeKeywords  []string         `yaml:"negative_keywords"`
	UnrelatedKeywords []string         `yaml:"unrelated_keywords"`
	Score             WeightOverrides  `yaml:"score"`
	Buckets           BucketsOverrides `yaml:"buckets"`
}

// WeightOverrides overrides individual weights.
type WeightOverrides struct {
	ExactTitleMatch  *float64 `yaml:"exact_title_match"`
	TokenMatch       *float64 `yaml:"token_match"`
	PositiveKeyword  *float64 `yaml:"positive_keyword"`
	NegativeKeyword  *float64 `yaml:"negative_keyword"`
	UnrelatedKeyword *float64 `yaml:"unrelated_keyword"`
	RecentClickTitle *float64 `yaml:"recent_click_title"`
	RecentClickShop  *float64 `yaml:"recent_click_shop"`
}

// BucketsOverrides overrides individual thresholds.
type BucketsOverrides struct {
	Strong *float64 `yaml:"strong"`
	Medium *float64 `yaml:"medium"`
}

// Merge applies ov on top of base.
//
// Per field:
//   - keyword lists: a non-empty override replaces the whole list
//   - weights and buckets: each non-nil override replaces that single value
func Merge(base Config, ov Overrides) Config {
	out := Config{
		PositiveKeywords:  pickList(ov.PositiveKeywords, base.PositiveKeywords),
		NegativeKeywords:  pickList(ov.NegativeKeywords, base.NegativeKeywords),
		UnrelatedKeywords: pickList(ov.UnrelatedKeywords, base.UnrelatedKeywords),
		Weights:           base.Weights,
		Buckets:           base.Buckets,
	}

	w := &out.Weights
	pick(&w.ExactTitleMatch, ov.Score.ExactTitleMatch)
	pick(&w.TokenMatch, ov.Score.TokenMatch)
	pick(&w.PositiveKeyword, ov.Score.PositiveKeyword)
	pick(&w.NegativeKeyword, ov.Score.NegativeKeyword)
	pick(&w.UnrelatedKeyword, ov.Score.UnrelatedKeyword)
	pick(&w.RecentClickTitle, ov.Score.RecentClickTitle)
	pick(&w.RecentClickShop, ov.Score.RecentClickShop)

	pick(&out.Buckets.Strong, ov.Buckets.Strong)
	pick(&out.Buckets.Medium, ov.Buckets.Medium)

	return out
}

// ParseOverrides decodes a YAML override document. Unknown keys are rejected.
func ParseOverrides(data []byte) (Overrides, error) {
	var ov Overrides

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil && !errors.Is(err, io.EOF) {
		return Overrides{}, fmt.Errorf("decoding relevance config: %w", err)
	}

	return ov, nil
}

// Load returns the defaults merged with the user file at userPath when it
// exists and parses, otherwise with the bundled file.
func Load(userPath string, logger *zap.Logger) Config {
	if userPath != "" {
		data, err := os.ReadFile(userPath)
		switch {
		case err == nil:
			ov, perr := ParseOverrides(data)
			if perr == nil {
				logger.Info("user relevance config loaded", zap.String("path", userPath))
				return Merge(Defaults(), ov)
			}
			logger.Warn("user relevance config invalid, using bundled",
				zap.String("path", userPath),
				zap.Error(perr),
			)
		case !errors.Is(err, os.ErrNotExist):
			logger.Warn("user relevance config unreadable, using bundled",
				zap.String("path", userPath),
				zap.Error(err),
			)
		}
	}

	ov, err := ParseOverrides(bundledConfig)
	if err != nil {
		logger.Warn("bundled relevance config invalid, using defaults", zap.Error(err))
		return Defaults()
	}

	return Merge(Defaults(), ov)
}

func pickList(override, base []string) []string {
	if len(override) > 0 {
		return append([]string(nil), override...)
	}
	return append([]string(nil), base...)
}

func pick(dst *float64, override *float64) {
	if override != nil {
		*dst = *override
	}
}
