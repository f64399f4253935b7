package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raysh454/trygglink/internal/app"
	"github.com/raysh454/trygglink/internal/model"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a URL or a file once and print the result as JSON",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "url <url>",
		Short: "Check a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, func(ctx context.Context, scans *app.ScanService) (*model.ScanResult, error) {
				return scans.ScanURL(ctx, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "file <path>",
		Short: "Check a file by the reputation of its SHA-256",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			return runScan(cmd, opts, func(ctx context.Context, scans *app.ScanService) (*model.ScanResult, error) {
				return scans.ScanFile(ctx, data, filepath.Base(args[0]))
			})
		},
	})
	return cmd
}

func runScan(cmd *cobra.Command, opts *rootOptions, scan func(context.Context, *app.ScanService) (*model.ScanResult, error)) error {
	_, a, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown(context.WithoutCancel(cmd.Context())) }()

	res, err := scan(cmd.Context(), a.Scans)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
