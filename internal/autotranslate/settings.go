// Package autotranslate fills translations from the translation memory or
// from other components of the project.
package autotranslate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"
)

// Modes
const (
	ModeSuggest   = "suggest"
	ModeTranslate = "translate"
	ModeFuzzy     = "fuzzy"
)

// Filters select the units to process.
const (
	FilterAll           = "all"
	FilterNotTranslated = "nottranslated"
	FilterTodo          = "todo"
)

// Sources
const (
	SourceMachineTranslation = "mt"
	SourceOthers             = "others"
)

// EngineTranslationMemory is the only supported machine translation engine.
const EngineTranslationMemory = "weblate-translation-memory"

// DefaultThreshold is the minimal memory similarity when none is configured.
const DefaultThreshold = 80

// Settings is the addon and job configuration of automatic translation.
type Settings struct {
	Mode       string   `mapstructure:"mode" json:"mode"`
	FilterType string   `mapstructure:"filter_type" json:"filter_type"`
	AutoSource string   `mapstructure:"auto_source" json:"auto_source"`
	Component  string   `mapstructure:"component" json:"component,omitempty"`
	Engines    []string `mapstructure:"engines" json:"engines,omitempty"`
	Threshold  int      `mapstructure:"threshold" json:"threshold"`
}

// DefaultSettings returns the settings used for missing keys.
func DefaultSettings() Settings {
	return Settings{
		Mode:       ModeSuggest,
		FilterType: FilterTodo,
		AutoSource: SourceOthers,
		Threshold:  DefaultThreshold,
	}
}

// Decode reads settings from an opaque configuration map on top of the
// defaults. It does not validate.
func Decode(configuration map[string]any) (Settings, error) {
	s := DefaultSettings()
	if len(configuration) == 0 {
		return s, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(configuration); err != nil {
		return s, fmt.Errorf("invalid automatic translation settings: %w", err)
	}
	return s, nil
}

// Validate returns every invalid field, joined.
func (s Settings) Validate() error {
	var errs []error
	if !slices.Contains([]string{ModeSuggest, ModeTranslate, ModeFuzzy}, s.Mode) {
		errs = append(errs, fmt.Errorf("mode: unsupported value %q", s.Mode))
	}
	if !slices.Contains([]string{FilterAll, FilterNotTranslated, FilterTodo}, s.FilterType) {
		errs = append(errs, fmt.Errorf("filter_type: unsupported value %q", s.FilterType))
	}
	switch s.AutoSource {
	case SourceOthers:
	case SourceMachineTranslation:
		if len(s.Engines) == 0 {
			errs = append(errs, errors.New("engines: at least one engine is required for machine translation"))
		}
		for _, e := range s.Engines {
			if e != EngineTranslationMemory {
				errs = append(errs, fmt.Errorf("engines: unsupported engine %q", e))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("auto_source: unsupported value %q", s.AutoSource))
	}
	if s.Threshold < 0 || s.Threshold > 100 {
		errs = append(errs, fmt.Errorf("threshold: %d is outside 0..100", s.Threshold))
	}
	return errors.Join(errs...)
}

// ValidateConfiguration decodes and validates configuration.
func ValidateConfiguration(configuration map[string]any) error {
	s, err := Decode(configuration)
	if err != nil {
		return err
	}
	return s.Validate()
}
