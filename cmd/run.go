// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/tripreport/config"
	"github.com/cardinalhq/tripreport/internal/awsclient"
	"github.com/cardinalhq/tripreport/internal/cloudstorage"
	"github.com/cardinalhq/tripreport/internal/reportgen"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <input_bucket> <input_key> <output_bucket> <output_key>",
	Short: "Generate a trip summary report",
	Long:  `Download the Parquet object at s3://<input_bucket>/<input_key>, summarize it, and upload the resulting JSON document to s3://<output_bucket>/<output_key>.`,
	Args:  cobra.ArbitraryArgs,
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupTelemetry("tripreport")
	defer cancel()

	slog.Info("Starting trip report run", slog.Int("argumentCount", len(args)))
	if len(args) != 4 {
		// A malformed invocation prints usage and exits cleanly, it is not
		// treated as a pipeline failure.
		return cmd.Usage()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mgr, err := awsclient.NewManager(ctx)
	if err != nil {
		return fmt.Errorf("create AWS client manager: %w", err)
	}
	storage, err := cloudstorage.NewS3Client(ctx, mgr, cfg.S3)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}

	gen, err := reportgen.New(storage,
		reportgen.WithRunID(myInstanceID),
		reportgen.WithDuckDBConfig(cfg.DuckDB),
		reportgen.WithTopTrips(cfg.Report.TopTrips),
	)
	if err != nil {
		return fmt.Errorf("create report generator: %w", err)
	}
	defer func() {
		if err := gen.Close(); err != nil {
			slog.Error("Failed to release report generator resources", slog.Any("error", err))
		}
	}()

	req := reportgen.Request{
		InputBucket:  args[0],
		InputKey:     args[1],
		OutputBucket: args[2],
		OutputKey:    args[3],
	}
	if err := gen.Run(ctx, req); err != nil {
		return err
	}

	slog.Info("Report written",
		slog.String("bucket", req.OutputBucket),
		slog.String("key", req.OutputKey))
	return nil
}
