package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Print the effective configuration and the file it comes from. With
--init, write it to that file so it can be edited.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInit {
			if _, err := os.Stat(cfg.Path()); err == nil {
				return fmt.Errorf("%s already exists", cfg.Path())
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Wrote %s\n", cfg.Path())
			return nil
		}

		fmt.Printf("# %s\n", cfg.Path())
		values := cfg.Values()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %v\n", k, values[k])
		}
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write the default config file")
}
