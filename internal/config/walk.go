package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"metadataexporter/internal/results"
	"metadataexporter/internal/tree"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Recognized walk option keys. Keys are matched case-insensitively.
const (
	KeyGroupingPattern     = "groupingPattern"
	KeyContentFilePattern  = "contentFilePattern"
	KeyChecksumSuffix      = "checksumSuffix"
	KeyIgnoredFilePatterns = "ignoredFilePatterns"
	KeyTransformMode       = "transformMode"
	KeyOutputLocation      = "outputLocation"
	KeyWarningPolicy       = "warningPolicy"

	keyLegacyTransform = "metadataexporter.transform"
	keyLegacyLocation  = "metadataexporter.location"
)

// Walk holds the options of one batch walk. It is built once and passed by
// value; nothing mutates it during a run.
type Walk struct {
	GroupingPattern     string
	ContentFilePattern  string
	ChecksumSuffix      string
	IgnoredFilePatterns []string
	TransformMode       bool
	OutputLocation      string
	WarningPolicy       string
}

func DefaultWalk() Walk {
	return Walk{
		GroupingPattern:     tree.DefaultGroupingPattern,
		ContentFilePattern:  tree.DefaultContentFilePattern,
		ChecksumSuffix:      tree.DefaultChecksumSuffix,
		IgnoredFilePatterns: append([]string(nil), tree.DefaultIgnoredFiles...),
		WarningPolicy:       string(results.PolicyForgiving),
	}
}

// WalkFromMap builds walk options from a flat key-value bag on top of the
// defaults. Unknown keys are ignored.
func WalkFromMap(values map[string]any) (Walk, error) {
	return DefaultWalk().Apply(values)
}

// Apply returns a copy of w with the recognized keys of values applied.
func (w Walk) Apply(values map[string]any) (Walk, error) {
	out := w
	out.IgnoredFilePatterns = append([]string(nil), w.IgnoredFilePatterns...)

	for rawKey, v := range values {
		var err error
		switch strings.ToLower(strings.TrimSpace(rawKey)) {
		case strings.ToLower(KeyGroupingPattern):
			out.GroupingPattern, err = cast.ToStringE(v)
		case strings.ToLower(KeyContentFilePattern):
			out.ContentFilePattern, err = cast.ToStringE(v)
		case strings.ToLower(KeyChecksumSuffix):
			out.ChecksumSuffix, err = cast.ToStringE(v)
		case strings.ToLower(KeyIgnoredFilePatterns):
			out.IgnoredFilePatterns, err = toPatternList(v)
		case strings.ToLower(KeyTransformMode), keyLegacyTransform:
			out.TransformMode, err = cast.ToBoolE(v)
		case strings.ToLower(KeyOutputLocation), keyLegacyLocation:
			out.OutputLocation, err = cast.ToStringE(v)
		case strings.ToLower(KeyWarningPolicy):
			out.WarningPolicy, err = cast.ToStringE(v)
		default:
			continue
		}
		if err != nil {
			return Walk{}, fmt.Errorf("invalid value for %s: %w", rawKey, err)
		}
	}
	return out, nil
}

// LoadWalkFile reads walk options from a .properties, .yaml, .yml or .json
// file on top of base.
func LoadWalkFile(path string, base Walk) (Walk, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Walk{}, fmt.Errorf("invalid config path %q: %w", path, err)
	}
	v := viper.New()
	v.SetConfigFile(expanded)
	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".properties", ".yaml", ".yml", ".json":
	default:
		return Walk{}, fmt.Errorf("unsupported config file type %q (must be one of: .properties, .yaml, .yml, .json)", filepath.Ext(expanded))
	}
	if err := v.ReadInConfig(); err != nil {
		return Walk{}, fmt.Errorf("failed to read config file %s: %w", expanded, err)
	}

	// AllKeys flattens nested sections into dotted keys, so the legacy
	// property names survive as "metadataexporter.transform".
	values := make(map[string]any)
	for _, k := range v.AllKeys() {
		values[k] = v.Get(k)
	}
	return base.Apply(values)
}

// Validate normalizes the options and checks that they form a usable
// grouping rule and warning policy.
func (w *Walk) Validate() error {
	w.IgnoredFilePatterns = splitCommaList(w.IgnoredFilePatterns)
	if _, err := w.GroupingRule(); err != nil {
		return err
	}
	p, err := results.ParsePolicy(w.WarningPolicy)
	if err != nil {
		return err
	}
	w.WarningPolicy = string(p)
	if w.OutputLocation != "" {
		loc, err := homedir.Expand(strings.TrimSpace(w.OutputLocation))
		if err != nil {
			return fmt.Errorf("invalid output location: %w", err)
		}
		w.OutputLocation = filepath.Clean(loc)
	}
	return nil
}

func (w Walk) GroupingRule() (*tree.GroupingRule, error) {
	return tree.NewGroupingRule(w.GroupingPattern, w.ContentFilePattern, w.ChecksumSuffix, w.IgnoredFilePatterns)
}

// Policy returns the parsed warning policy, falling back to forgiving.
func (w Walk) Policy() results.Policy {
	p, err := results.ParsePolicy(w.WarningPolicy)
	if err != nil {
		return results.PolicyForgiving
	}
	return p
}

// toPatternList accepts a comma-separated string or a list of strings.
func toPatternList(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return splitCommaList([]string{s}), nil
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, err
	}
	return splitCommaList(list), nil
}
