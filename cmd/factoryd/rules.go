package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factorycraft.ai/internal/sim/factory"
)

func newRulesCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate the rule tables and print their digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.RulesDir
			}
			rules, err := factory.LoadRules(dir)
			if err != nil {
				return err
			}
			c := rules.Catalogs
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tENTRIES\tDIGEST")
			fmt.Fprintf(tw, "materials\t%d\t%s\n", len(c.Materials.Order), c.Materials.Digest)
			fmt.Fprintf(tw, "recipes\t%d\t%s\n", len(c.Recipes.Order), c.Recipes.Digest)
			fmt.Fprintf(tw, "generators\t%d\t%s\n", len(c.Generators.Order), c.Generators.Digest)
			fmt.Fprintf(tw, "tuning\t-\t%s\n", rules.Tuning.Digest())
			fmt.Fprintf(tw, "rules\t-\t%s\n", rules.Digest())
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "rules directory (default: rules_dir from the config)")
	return cmd
}
