package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/preprocess"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and prune materialized datasets",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogRemoveCommand(ctx))
	catalogCmd.AddCommand(newCatalogVerifyCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered materializations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No materialized datasets registered")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				present := "yes"
				if _, err := os.Stat(e.Path); err != nil {
					present = "missing"
				}
				rows = append(rows, []string{
					e.Fingerprint,
					strconv.Itoa(e.Rows),
					strconv.Itoa(e.PartialRows),
					strconv.Itoa(e.Shards),
					e.UpdatedAt.Local().Format("2006-01-02 15:04"),
					present,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Fingerprint", "Rows", "Partial", "Shards", "Updated", "On disk"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newCatalogRemoveCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "remove <fingerprint>...",
		Short: "Unregister materializations, optionally deleting their directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, fingerprint := range args {
				fingerprint = strings.TrimSpace(fingerprint)
				entry, err := store.Lookup(cmd.Context(), fingerprint)
				if err != nil {
					return err
				}
				if entry == nil {
					fmt.Fprintf(out, "%s: not registered\n", fingerprint)
					continue
				}
				if purge {
					if err := os.RemoveAll(entry.Path); err != nil {
						return fmt.Errorf("delete %s: %w", entry.Path, err)
					}
				}
				if _, err := store.Remove(cmd.Context(), fingerprint); err != nil {
					return err
				}
				if purge {
					fmt.Fprintf(out, "%s: removed and deleted %s\n", fingerprint, entry.Path)
				} else {
					fmt.Fprintf(out, "%s: removed\n", fingerprint)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete the materialization directory")
	return cmd
}

func newCatalogVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [fingerprint]...",
		Short: "Recompute shard checksums of registered materializations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			wanted := make(map[string]bool, len(args))
			for _, arg := range args {
				wanted[strings.TrimSpace(arg)] = true
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, e := range entries {
				if len(wanted) > 0 && !wanted[e.Fingerprint] {
					continue
				}
				if err := preprocess.Verify(e.Path); err != nil {
					failed++
					fmt.Fprintf(out, "%s: FAIL (%v)\n", e.Fingerprint, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", e.Fingerprint)
			}
			if failed > 0 {
				return fmt.Errorf("%d materialization(s) failed verification", failed)
			}
			return nil
		},
	}
}
