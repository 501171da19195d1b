package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/valobj/internal/config"
	"github.com/kingrea/valobj/internal/version"
)

func newConfigCommand(app *cli) *cobra.Command {
	var initialize bool
	cmd := &cobra.Command{
		Use:   "config [key]",
		Short: "Show effective configuration",
		Long: `Without arguments, print every setting with its effective value.
With a key such as synth.backend, print only that value.

Use --init to create .valobj.yaml and the .valobj state directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if initialize {
				if err := config.InitDir(app.projectDir); err != nil {
					return err
				}
				fmt.Fprintf(out, "initialized %s\n", app.projectDir)
				return nil
			}
			if len(args) == 1 {
				value, ok := app.cfg.Value(args[0])
				if !ok {
					return fmt.Errorf("unknown config key %q", args[0])
				}
				fmt.Fprintln(out, value)
				return nil
			}
			for _, key := range app.cfg.Keys() {
				value, _ := app.cfg.Value(key)
				fmt.Fprintf(out, "%s: %v\n", key, value)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&initialize, "init", false, "create the project configuration file")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "valobj version %s\n", version.Get())
		},
	}
}
