package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kingrea/valobj/internal/codegen"
)

func newGenerateCommand(app *cli) *cobra.Command {
	var (
		out   string
		pkg   string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "generate [path...]",
		Short: "Write Go source for the value type of each contract",
		Long: `Render one <contract>_value.go file per contract into the output directory.
Every contract is validated before anything is written.

With --watch, regenerate whenever a contract file changes until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{app.cfg.ContractsDir()}
			}
			g := &codegen.Generator{
				Out:     app.cfg.OutDir(),
				Package: app.cfg.Generate.Package,
				Suffix:  app.cfg.Synth.Suffix,
				Log:     app.log,
			}
			if out != "" {
				g.Out = out
			}
			if pkg != "" {
				g.Package = pkg
			}
			w := cmd.OutOrStdout()
			report := func(r codegen.Run) {
				if r.Err != nil {
					printStatus(w, "✗", r.Err.Error(), color.FgRed)
					return
				}
				for _, f := range r.Files {
					printStatus(w, "✓", fmt.Sprintf("%s → %s", f.Contract, f.Path), color.FgGreen)
				}
			}

			if !watch {
				files, err := g.GeneratePaths(cmd.Context(), args...)
				if err != nil {
					return err
				}
				report(codegen.Run{Files: files})
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			printStatus(w, "●", fmt.Sprintf("watching %v (ctrl+c to stop)", args), color.FgCyan)
			return g.Watch(ctx, codegen.DefaultDebounce, report, args...)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: generate.out)")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "package name of generated files (default: generate.package)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate on contract changes")
	return cmd
}
