package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vito/achronyme/pkg/catalog"
	"github.com/vito/achronyme/pkg/ioctx"
)

func catalogCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Store snapshots by name in a catalog database",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "achronyme.db", "Path to the catalog database")

	withCatalog := func(fn func(cmd *cobra.Command, c *catalog.Catalog, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ioctx.LoggerFromContext(cmd.Context()).Debug("opening catalog", "path", dbPath)
			c, err := catalog.Open(dbPath)
			if err != nil {
				return err
			}
			defer c.Close()
			return fn(cmd, c, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "put NAME FILE",
			Short: "Store a snapshot file under a name",
			Args:  cobra.ExactArgs(2),
			RunE: withCatalog(func(cmd *cobra.Command, c *catalog.Catalog, args []string) error {
				data, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}
				entry, err := c.Put(args[0], data)
				if err != nil {
					return fmt.Errorf("%s: %w", args[1], err)
				}
				fmt.Fprintf(ioctx.StdoutFromContext(cmd.Context()), "stored %s (%d bindings, %d bytes)\n",
					entry.Name, entry.Metadata.NumBindings, entry.Size)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "get NAME FILE",
			Short: "Write a stored snapshot to a file",
			Args:  cobra.ExactArgs(2),
			RunE: withCatalog(func(cmd *cobra.Command, c *catalog.Catalog, args []string) error {
				data, err := c.Get(args[0])
				if err != nil {
					return err
				}
				return os.WriteFile(args[1], data, 0o644)
			}),
		},
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "List stored snapshots",
			Args:    cobra.NoArgs,
			RunE: withCatalog(func(cmd *cobra.Command, c *catalog.Catalog, args []string) error {
				entries, err := c.List()
				if err != nil {
					return err
				}
				printCatalog(ioctx.StdoutFromContext(cmd.Context()), entries)
				return nil
			}),
		},
		&cobra.Command{
			Use:     "rm NAME...",
			Aliases: []string{"delete"},
			Short:   "Remove stored snapshots",
			Args:    cobra.MinimumNArgs(1),
			RunE: withCatalog(func(cmd *cobra.Command, c *catalog.Catalog, args []string) error {
				for _, name := range args {
					if err := c.Delete(name); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
				}
				return nil
			}),
		},
	)
	return cmd
}

func printCatalog(w io.Writer, entries []catalog.Entry) {
	p := newPrinter(w)
	if len(entries) == 0 {
		p.Printf("no snapshots\n")
		return
	}
	rows := make([][]string, len(entries))
	for k, e := range entries {
		rows[k] = []string{
			e.Name,
			fmt.Sprint(e.Metadata.NumBindings),
			fmt.Sprint(e.Size),
			time.Unix(e.StoredAt, 0).UTC().Format(time.RFC3339),
			e.Metadata.Description,
		}
	}
	p.Table([]string{"NAME", "BINDINGS", "BYTES", "STORED", "DESCRIPTION"}, rows)
}
