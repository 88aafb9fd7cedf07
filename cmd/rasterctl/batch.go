package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/book-expert/raster-pipeline/internal/batch"
	"github.com/book-expert/raster-pipeline/internal/pipeline"
)

const defaultConfigFile = "raster.toml"

type configPaths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
}

type configLogsDir struct {
	Raster string `toml:"raster"`
}

type configSettings struct {
	Workers  int    `toml:"workers"`
	Format   string `toml:"format"`
	MaxValue int    `toml:"max_value"`
}

type configBlankDetection struct {
	Enabled           bool    `toml:"enabled"`
	FuzzPercent       int     `toml:"fuzz_percent"`
	NonWhiteThreshold float64 `toml:"non_white_threshold"`
}

// configStep keeps TOML argument values in their native types; they are
// turned into strings by mergeConfigAndFlags.
type configStep struct {
	Op   string         `toml:"op"`
	Args map[string]any `toml:"args"`
}

// config represents the structure of the raster.toml file.
type config struct {
	Paths          configPaths          `toml:"paths"`
	LogsDir        configLogsDir        `toml:"logs_dir"`
	Settings       configSettings       `toml:"settings"`
	BlankDetection configBlankDetection `toml:"blank_detection"`
	Steps          []configStep         `toml:"steps"`
}

// flags represents the batch command-line arguments.
type flags struct {
	inputPath  string
	outputPath string
	format     string
	workers    int
	skipBlank  bool
	steps      []string
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a pipeline over every PNM image in a directory",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}

	cmd.Flags().String("config", defaultConfigFile, "TOML config file; a missing file is ignored")
	cmd.Flags().StringP("input", "i", "", "Input directory")
	cmd.Flags().StringP("output", "o", "", "Output directory")
	cmd.Flags().StringP("format", "f", "", "Output variant; empty keeps each input's variant")
	cmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers")
	cmd.Flags().Bool("skip-blank", false, "Do not write results that are blank pages")
	cmd.Flags().StringArrayP("step", "s", nil, "Operation with key=value arguments; replaces the config steps")

	return cmd
}

func runBatch(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := safeLoadConfig(configPath)
	if err != nil {
		return err
	}

	var flgs flags
	flgs.inputPath, _ = cmd.Flags().GetString("input")
	flgs.outputPath, _ = cmd.Flags().GetString("output")
	flgs.format, _ = cmd.Flags().GetString("format")
	flgs.workers, _ = cmd.Flags().GetInt("workers")
	flgs.skipBlank, _ = cmd.Flags().GetBool("skip-blank")
	flgs.steps, _ = cmd.Flags().GetStringArray("step")

	options, err := mergeConfigAndFlags(&cfg, flgs)
	if err != nil {
		return err
	}

	options.ProgressBarOutput = cmd.ErrOrStderr()

	log, err := setupLogger(cfg.LogsDir.Raster)
	if err != nil {
		return fmt.Errorf("could not set up logger: %w", err)
	}

	defer func() {
		cerr := log.Close()
		if cerr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", cerr)
		}
	}()

	processor := batch.NewProcessor(&options, log)

	procErr := processor.Process(cmd.Context())
	if procErr != nil {
		return fmt.Errorf("batch processing failed: %w", procErr)
	}

	stats := processor.Stats()
	fmt.Fprintf(
		cmd.OutOrStdout(),
		"Processed %d, skipped %d, failed %d\n",
		stats.Processed,
		stats.Skipped,
		stats.Failed,
	)

	return nil
}

// safeLoadConfig loads the TOML config, allowing a missing file without error.
func safeLoadConfig(path string) (config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			var emptyCfg config

			return emptyCfg, nil
		}

		return config{}, fmt.Errorf("error loading config file: %w", err)
	}

	return cfg, nil
}

func loadConfig(path string) (config, error) {
	var cfg config

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		var zero config

		return zero, fmt.Errorf("failed to decode config file: %w", err)
	}

	return cfg, nil
}

// mergeConfigAndFlags combines settings from the config file and command-line
// flags. Flags take precedence over the config file settings.
func mergeConfigAndFlags(cfg *config, flgs flags) (batch.Options, error) {
	opts := batch.Options{
		ProgressBarOutput:      nil,
		InputPath:              cfg.Paths.InputDir,
		OutputPath:             cfg.Paths.OutputDir,
		Workers:                cfg.Settings.Workers,
		Steps:                  configSteps(cfg.Steps),
		Output:                 0,
		MaxValue:               cfg.Settings.MaxValue,
		SkipBlank:              cfg.BlankDetection.Enabled,
		BlankFuzzPercent:       cfg.BlankDetection.FuzzPercent,
		BlankNonWhiteThreshold: cfg.BlankDetection.NonWhiteThreshold,
	}

	if flgs.inputPath != "" {
		opts.InputPath = flgs.inputPath
	}

	if flgs.outputPath != "" {
		opts.OutputPath = flgs.outputPath
	}

	if flgs.workers > 0 {
		opts.Workers = flgs.workers
	}

	if flgs.skipBlank {
		opts.SkipBlank = true
	}

	if len(flgs.steps) > 0 {
		steps, err := parseSteps(flgs.steps)
		if err != nil {
			return batch.Options{}, err
		}

		opts.Steps = steps
	}

	format := cfg.Settings.Format
	if flgs.format != "" {
		format = flgs.format
	}

	variant, err := parseOutputVariant(format)
	if err != nil {
		return batch.Options{}, err
	}

	opts.Output = variant

	return opts, nil
}

func configSteps(steps []configStep) []pipeline.Step {
	if len(steps) == 0 {
		return nil
	}

	out := make([]pipeline.Step, len(steps))

	for i, step := range steps {
		out[i] = pipeline.Step{Op: step.Op, Args: nil}

		if len(step.Args) == 0 {
			continue
		}

		out[i].Args = make(pipeline.Args, len(step.Args))
		for key, value := range step.Args {
			out[i].Args[key] = fmt.Sprint(value)
		}
	}

	return out
}

// setupLogger initializes the logger, creating the log directory if needed.
func setupLogger(logDirConfig string) (*logger.Logger, error) {
	logDir := logDirConfig
	if logDir == "" {
		logDir = filepath.Join("logs", "raster")
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("20060102_150405"))

	log, err := logger.New(logDir, logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}
