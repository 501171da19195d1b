package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/internal/tui"
)

func newValidateCommand(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path...]",
		Short: "Check that contracts are eligible for synthesis",
		Long: `Load contracts from YAML files, Go source files or directories and report
whether each one can be synthesized. A contract is rejected when it (or an
ancestor) declares a writable attribute or any behavior member.

Exits non-zero when any contract is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := app.contracts(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, c := range contracts {
				if err := contract.Validate(c); err != nil {
					failed++
					kind, _ := contract.KindOf(err)
					printStatus(out, "✗", fmt.Sprintf("INVALID %s [%s]: %v", c.QualifiedName(), kind, err), color.FgRed)
					app.log.Info("contract rejected", "contract", c.QualifiedName(), "source", c.Source, "error", err)
					continue
				}
				printStatus(out, "✓", fmt.Sprintf("OK %s", c.QualifiedName()), color.FgGreen)
			}
			if failed > 0 {
				return fmt.Errorf("%w (%d of %d)", errInvalid, failed, len(contracts))
			}
			return nil
		},
	}
}

func newInspectCommand(app *cli) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "inspect [path...]",
		Short: "Show the flattened shape of each contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := app.contracts(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range contracts {
				fmt.Fprintln(out, tui.Box(tui.RenderShape(c, width-4), width))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 72, "panel width")
	return cmd
}

func printStatus(out io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(out, "%s %s\n", c.Sprint(symbol), message)
}
