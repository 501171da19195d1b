package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/internal/config"
	"github.com/kingrea/valobj/internal/tui"
)

func newCheckCommand(app *cli) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Synthesize every contract to prove it can be implemented",
		Long: `Synthesize a value type for each contract in a fresh container and list the
members it received. The interpreted backend evaluates the generated source,
so it also catches attribute types the interpreter cannot express.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := app.contracts(args)
			if err != nil {
				return err
			}
			impl, err := app.implementer(backend)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, c := range contracts {
				typ, err := impl.Implement(c)
				if err != nil {
					failed++
					printStatus(out, "✗", fmt.Sprintf("%s: %v", c.QualifiedName(), err), color.FgRed)
					continue
				}
				var members []string
				for _, m := range typ.Members() {
					members = append(members, m.Name)
				}
				printStatus(out, "✓", fmt.Sprintf("%s → %s (%s)", c.QualifiedName(), typ.Name(), strings.Join(members, ", ")), color.FgGreen)
			}
			app.log.Info("check finished", "backend", backend, "contracts", len(contracts), "failed", failed)
			if failed > 0 {
				return fmt.Errorf("%w (%d of %d)", errInvalid, failed, len(contracts))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", config.BackendInterpreted, "type factory: reflect or interpreted")
	return cmd
}

func newBrowseCommand(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [path...]",
		Short: "Browse contracts and their shapes interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := app.contracts(args)
			if err != nil {
				return err
			}
			impl, err := app.implementer(app.cfg.Synth.Backend)
			if err != nil {
				return err
			}
			model := tui.NewApp(contracts, func(c *contract.Contract) (string, error) {
				typ, err := impl.Implement(c)
				if err != nil {
					return "", err
				}
				return typ.Name(), nil
			})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(cmd.OutOrStdout()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run browser: %w", err)
			}
			return nil
		},
	}
}
