package autotranslate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   map[string]any
		want    Settings
		wantErr string
	}{
		{
			name:  "empty configuration uses defaults",
			input: nil,
			want:  DefaultSettings(),
		},
		{
			name: "full configuration",
			input: map[string]any{
				"mode":        "translate",
				"filter_type": "all",
				"auto_source": "mt",
				"engines":     []any{"weblate-translation-memory"},
				"threshold":   float64(95),
			},
			want: Settings{
				Mode:       ModeTranslate,
				FilterType: FilterAll,
				AutoSource: SourceMachineTranslation,
				Engines:    []string{EngineTranslationMemory},
				Threshold:  95,
			},
		},
		{
			name:  "threshold as string",
			input: map[string]any{"threshold": "70"},
			want: Settings{
				Mode:       ModeSuggest,
				FilterType: FilterTodo,
				AutoSource: SourceOthers,
				Threshold:  70,
			},
		},
		{
			name:    "threshold not a number",
			input:   map[string]any{"threshold": "high"},
			wantErr: "invalid automatic translation settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(s *Settings)
		wantErrs []string
	}{
		{name: "defaults are valid", mutate: func(*Settings) {}},
		{
			name: "memory engine",
			mutate: func(s *Settings) {
				s.AutoSource = SourceMachineTranslation
				s.Engines = []string{EngineTranslationMemory}
			},
		},
		{
			name:     "unknown mode",
			mutate:   func(s *Settings) { s.Mode = "overwrite" },
			wantErrs: []string{"mode: unsupported value"},
		},
		{
			name: "unsupported engine and threshold",
			mutate: func(s *Settings) {
				s.AutoSource = SourceMachineTranslation
				s.Engines = []string{"deepl"}
				s.Threshold = 120
			},
			wantErrs: []string{`engines: unsupported engine "deepl"`, "threshold: 120 is outside 0..100"},
		},
		{
			name: "machine translation without engines",
			mutate: func(s *Settings) {
				s.AutoSource = SourceMachineTranslation
			},
			wantErrs: []string{"engines: at least one engine"},
		},
		{
			name: "unknown filter and source",
			mutate: func(s *Settings) {
				s.FilterType = "fuzzy"
				s.AutoSource = "glossary"
			},
			wantErrs: []string{"filter_type: unsupported value", "auto_source: unsupported value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if len(tt.wantErrs) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
