package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factorycraft.ai/internal/persistence/indexdb"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/factory"
)

func newInspectCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <snapshot.snap.zst>",
		Short: "Print a snapshot summary or dump its state as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, st, err := snapshot.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return snapshot.WriteJSON(cmd.OutOrStdout(), st)
			}
			printSummary(cmd.OutOrStdout(), h, st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "dump the full state as indented JSON")
	cmd.AddCommand(newRunsCommand())
	return cmd
}

func printSummary(w io.Writer, h snapshot.Header, st factory.State) {
	fmt.Fprintf(w, "snapshot v%d run=%s tick=%d seed=%d\n", h.Version, h.RunID, h.Tick, h.Seed)
	fmt.Fprintf(w, "  digest:     %s\n", h.StateDigest)
	fmt.Fprintf(w, "  credits:    %d\n", st.Credits)
	fmt.Fprintf(w, "  energy:     %d/%d\n", st.Energy.Consumed, st.Energy.Produced)
	fmt.Fprintf(w, "  floor:      %dx%d (%d placements)\n", st.Floor.Width, st.Floor.Height, len(st.Floor.Placements))
	fmt.Fprintf(w, "  storage:    %d\n", st.InventorySpace)
	fmt.Fprintf(w, "  research:   active=%v discovered=%d unlocked=%d\n", st.Research.Active, len(st.Discovered), len(st.Unlocked))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(st.Machines) > 0 {
		fmt.Fprintln(tw, "\nMACHINE\tRECIPE\tSTATUS\tENABLED\tPOS\tBUFFER")
		for _, m := range st.Machines {
			recipe := m.RecipeID
			if recipe == "" {
				recipe = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t(%d,%d)\t%s\n", m.ID, recipe, m.Status, m.Enabled, m.X, m.Y, formatCounts(m.Buffer))
		}
	}
	if len(st.Generators) > 0 {
		fmt.Fprintln(tw, "\nGENERATOR\tTYPE\tOUTPUT\tPOS")
		for _, g := range st.Generators {
			fmt.Fprintf(tw, "%s\t%s\t%d\t(%d,%d)\n", g.ID, g.Type, g.Output, g.X, g.Y)
		}
	}
	if len(st.Inventory) > 0 {
		fmt.Fprintln(tw, "\nITEM\tQTY\tPOPULARITY")
		for _, item := range sortedItems(st.Inventory) {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\n", item, st.Inventory[item], st.PopularityOf(item))
		}
	}
	tw.Flush()
}

func sortedItems(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedItems(m) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return strings.Join(parts, ",")
}

func newRunsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in the index database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Index.Enabled {
				return fmt.Errorf("index is disabled in the configuration")
			}
			idx, err := indexdb.OpenSQLite(cfg.Index.Path)
			if err != nil {
				return err
			}
			defer idx.Close()

			ctx := context.Background()
			runs, err := idx.Runs(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSEED\tSTARTED\tLAST TICK\tCOMMANDS\tREJECTED")
			for _, r := range runs {
				counts, err := idx.CommandCounts(ctx, r.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\n", r.ID, r.Seed, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.LastTick, r.Commands, rejected(counts))
			}
			return tw.Flush()
		},
	}
}

func rejected(counts map[string]int) int {
	n := 0
	for k, v := range counts {
		if strings.HasSuffix(k, ":rejected") {
			n += v
		}
	}
	return n
}
