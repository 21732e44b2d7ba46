package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/engine"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/manifest"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/observability"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/results"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/store"
)

// newScanCmd creates the `scan` command: load package documents, run the
// detection engine, emit a ranked report.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [package documents...]",
		Short: "Scores package documents for supply-chain risk (use \"-\" to read stdin)",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("engine.max_concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.confidence_threshold", cmd.Flags().Lookup("confidence")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Flag overrides bound in PreRunE take precedence over the file.
			// Changed, not a zero sentinel: --confidence 0 means report
			// everything.
			if cmd.Flags().Changed("concurrency") {
				cfg.Engine.MaxConcurrency = viper.GetInt("engine.max_concurrency")
			}
			if cmd.Flags().Changed("confidence") {
				cfg.Engine.ConfidenceThreshold = viper.GetFloat64("engine.confidence_threshold")
			}

			packages := make([]*schemas.Package, 0, len(args))
			for _, path := range args {
				pkg, err := loadDocument(path)
				if err != nil {
					logger.Warn("Skipping unreadable package document", zap.String("path", path), zap.Error(err))
					continue
				}
				packages = append(packages, pkg)
			}
			if len(packages) == 0 {
				return fmt.Errorf("no readable package documents among %d argument(s)", len(args))
			}

			scanID := uuid.New().String()
			logger.Info("Starting scan",
				zap.String("scan_id", scanID),
				zap.Int("packages", len(packages)))

			eng := engine.New(cfg.Engine, logger)

			scanned, err := eng.Scan(ctx, packages, engine.WithProgress(func(ev engine.ProgressEvent) {
				logger.Debug("Scan progress",
					zap.String("package", ev.PackageName),
					zap.String("state", string(ev.State)))
			}))
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return fmt.Errorf("scan aborted by user signal")
				}
				return fmt.Errorf("scan failed: %w", err)
			}

			report := results.NewPipeline(logger).Build(scanID, scanned)

			if cfg.Database.Enabled {
				if err := persistReport(ctx, scanID, scanned, logger); err != nil {
					// Persistence is best-effort; the report still prints.
					logger.Error("Failed to persist scan results", zap.Error(err))
				}
			}

			return writeReport(report, viper.GetString("output"), viper.GetString("format"))
		},
	}

	scanCmd.Flags().IntP("concurrency", "j", 0, "maximum worker concurrency for batch scans")
	scanCmd.Flags().Float64P("confidence", "t", 0, "confidence threshold for reported results")
	scanCmd.Flags().StringP("output", "o", "", "write the report to a file instead of stdout")
	scanCmd.Flags().StringP("format", "f", "json", "report format: json or table")

	return scanCmd
}

// loadDocument reads a package document from disk, or from stdin when the
// path is "-".
func loadDocument(path string) (*schemas.Package, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read package document from stdin: %w", err)
		}
		return manifest.Parse(data)
	}
	return manifest.Load(path)
}

func persistReport(ctx context.Context, scanID string, scanned []schemas.DetectionResult, logger *zap.Logger) error {
	poolCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(poolCtx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	st, err := store.New(poolCtx, pool, logger)
	if err != nil {
		return err
	}
	return st.PersistResults(ctx, scanID, scanned)
}

func writeReport(report *results.Report, output, format string) error {
	var data []byte
	switch format {
	case "", "json":
		var err error
		if data, err = report.ToJSON(); err != nil {
			return fmt.Errorf("failed to serialize report: %w", err)
		}
	case "table":
		data = report.ToTable()
	default:
		return fmt.Errorf("unknown report format %q (expected json or table)", format)
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", output, err)
	}
	return nil
}
