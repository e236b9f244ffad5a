package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/achronyme/pkg/ioctx"
	"github.com/vito/achronyme/pkg/persist"
)

// snapshotReport is the outcome of reading one snapshot file.
type snapshotReport struct {
	Path     string
	Size     int
	Header   persist.Header
	Metadata *persist.Metadata
	Err      error
}

// readSnapshots reads every path concurrently. Per-file failures are
// recorded on the report rather than aborting the batch.
func readSnapshots(ctx context.Context, paths []string, read func(data []byte, r *snapshotReport) error) []snapshotReport {
	reports := make([]snapshotReport, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for k, path := range paths {
		eg.Go(func() error {
			r := &reports[k]
			r.Path = path
			if err := ctx.Err(); err != nil {
				r.Err = err
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				r.Err = err
				return nil
			}
			r.Size = len(data)
			r.Err = read(data, r)
			return nil
		})
	}
	_ = eg.Wait()
	return reports
}

func inspectSnapshot(data []byte, r *snapshotReport) error {
	meta, err := persist.InspectBytes(data)
	if err != nil {
		return err
	}
	r.Metadata = meta
	r.Header, err = persist.Verify(data)
	return err
}

func infoCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "info FILE...",
		Short: "Show snapshot metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reports := readSnapshots(ctx, args, inspectSnapshot)
			return printInfo(ioctx.StdoutFromContext(ctx), reports, raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Dump the decoded metadata structure")
	return cmd
}

func printInfo(w io.Writer, reports []snapshotReport, raw bool) error {
	p := newPrinter(w)
	var failed int
	for k, r := range reports {
		if k > 0 {
			p.Printf("\n")
		}
		p.Title(r.Path)
		if r.Metadata == nil {
			failed++
			p.Printf("  %s %v\n", p.render(failStyle, "error:"), r.Err)
			continue
		}
		if raw {
			p.Printf("%# v\n", pretty.Formatter(*r.Metadata))
			continue
		}
		m := r.Metadata
		p.Field("id", m.ID)
		p.Field("created", m.Created().UTC().Format(time.RFC3339))
		p.Field("created by", m.CreatedBy)
		p.Field("platform", m.Platform)
		if m.Description != "" {
			p.Field("description", m.Description)
		}
		if len(m.Tags) > 0 {
			p.Field("tags", strings.Join(m.Tags, ", "))
		}
		p.Field("size", fmt.Sprintf("%d bytes", r.Size))
		p.Field("compression", r.Header.Compression)
		p.Field("bindings", fmt.Sprintf("%d (%s)", m.NumBindings, strings.Join(m.BindingNames, ", ")))
		if r.Err != nil {
			failed++
			p.Field("checksum", p.render(failStyle, r.Err.Error()))
		} else {
			p.Field("checksum", p.render(okStyle, "ok"))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots could not be read", failed, len(reports))
	}
	return nil
}

func verifyCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Check snapshot checksums and decode their bindings",
		Long: `Verify reads each snapshot, checks its header and SHA-256 checksum,
and decodes every binding. The version policy follows the [persist]
section of achronyme.toml.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}
			loadOpts := cfg.LoadOptions()
			loadOpts.VerifyChecksum = true
			reports := readSnapshots(ctx, args, func(data []byte, r *snapshotReport) error {
				var err error
				if r.Header, err = persist.Verify(data); err != nil {
					return err
				}
				body, err := persist.Decode(data, loadOpts)
				if err != nil {
					return err
				}
				r.Metadata = &body.Metadata
				return nil
			})
			return printVerify(ioctx.StdoutFromContext(ctx), reports)
		},
	}
}

func printVerify(w io.Writer, reports []snapshotReport) error {
	p := newPrinter(w)
	var failed int
	for _, r := range reports {
		if r.Err != nil {
			failed++
			p.Printf("%s %s: %v\n", p.render(failStyle, "FAIL"), r.Path, r.Err)
			continue
		}
		p.Printf("%s   %s (%d bindings)\n", p.render(okStyle, "OK"), r.Path, r.Metadata.NumBindings)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed verification", failed, len(reports))
	}
	return nil
}
