package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/raster-pipeline/internal/batch"
	"github.com/book-expert/raster-pipeline/internal/pipeline"
	"github.com/book-expert/raster-pipeline/internal/pnm"
)

// TestMergeConfigAndFlags verifies that command-line flags correctly override
// config file settings.
func TestMergeConfigAndFlags(t *testing.T) {
	t.Parallel()

	baseConfig := config{
		Paths:    configPaths{InputDir: "/config/in", OutputDir: "/config/out"},
		LogsDir:  configLogsDir{Raster: ""},
		Settings: configSettings{Workers: 4, Format: "pgm", MaxValue: 1023},
		BlankDetection: configBlankDetection{
			Enabled:           false,
			FuzzPercent:       10,
			NonWhiteThreshold: 0.1,
		},
		Steps: []configStep{
			{Op: "gaussian", Args: map[string]any{"size": int64(5), "sigma": 1.5}},
			{Op: "otsu", Args: nil},
		},
	}

	testCases := []struct {
		name            string
		flags           flags
		expectedOptions batch.Options
	}{
		{
			name: "Flags should override all corresponding config values",
			flags: flags{
				inputPath:  "/flag/in",
				outputPath: "/flag/out",
				format:     "P1",
				workers:    8,
				skipBlank:  true,
				steps:      []string{"threshold cutoff=90"},
			},
			expectedOptions: batch.Options{
				ProgressBarOutput:      nil,
				InputPath:              "/flag/in",
				OutputPath:             "/flag/out",
				Workers:                8,
				Steps:                  []pipeline.Step{{Op: "threshold", Args: pipeline.Args{"cutoff": "90"}}},
				Output:                 pnm.PlainPBM,
				MaxValue:               1023,
				SkipBlank:              true,
				BlankFuzzPercent:       10,
				BlankNonWhiteThreshold: 0.1,
			},
		},
		{
			name: "Config values should be used when flags are not provided",
			flags: flags{
				inputPath:  "",
				outputPath: "",
				format:     "",
				workers:    0,
				skipBlank:  false,
				steps:      nil,
			},
			expectedOptions: batch.Options{
				ProgressBarOutput: nil,
				InputPath:         "/config/in",
				OutputPath:        "/config/out",
				Workers:           4,
				Steps: []pipeline.Step{
					{Op: "gaussian", Args: pipeline.Args{"size": "5", "sigma": "1.5"}},
					{Op: "otsu", Args: nil},
				},
				Output:                 pnm.RawPGM,
				MaxValue:               1023,
				SkipBlank:              false,
				BlankFuzzPercent:       10,
				BlankNonWhiteThreshold: 0.1,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig

			result, err := mergeConfigAndFlags(&cfg, tc.flags)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedOptions, result)
		})
	}
}

func TestMergeConfigAndFlags_RejectsBadInput(t *testing.T) {
	t.Parallel()

	var cfg config

	_, err := mergeConfigAndFlags(&cfg, flags{
		inputPath:  "",
		outputPath: "",
		format:     "P9",
		workers:    0,
		skipBlank:  false,
		steps:      nil,
	})
	require.ErrorIs(t, err, pnm.ErrInvalidVariant)

	_, err = mergeConfigAndFlags(&cfg, flags{
		inputPath:  "",
		outputPath: "",
		format:     "",
		workers:    0,
		skipBlank:  false,
		steps:      []string{"threshold cutoff"},
	})
	require.ErrorIs(t, err, pipeline.ErrInvalidArgument)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "raster.toml")
	content := `
[paths]
input_dir = "scans"
output_dir = "clean"

[settings]
workers = 3
format = "pbm-binary"

[blank_detection]
enabled = true
fuzz_percent = 7
non_white_threshold = 0.02

[[steps]]
op = "median"

[[steps]]
op = "sauvola"
[steps.args]
window = 25
k = 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, configPaths{InputDir: "scans", OutputDir: "clean"}, cfg.Paths)
	assert.Equal(t, 3, cfg.Settings.Workers)
	assert.Equal(t, "pbm-binary", cfg.Settings.Format)
	assert.True(t, cfg.BlankDetection.Enabled)
	assert.Equal(t, 7, cfg.BlankDetection.FuzzPercent)
	assert.InDelta(t, 0.02, cfg.BlankDetection.NonWhiteThreshold, 1e-12)

	steps := configSteps(cfg.Steps)
	assert.Equal(t, []pipeline.Step{
		{Op: "median", Args: nil},
		{Op: "sauvola", Args: pipeline.Args{"window": "25", "k": "0.3"}},
	}, steps)
	require.NoError(t, pipeline.Validate(steps))
}

func TestSafeLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := safeLoadConfig(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, config{}, cfg)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[paths\ninput_dir = "), 0o600))

	_, err = safeLoadConfig(bad)
	require.Error(t, err)
}
