package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/valobj"
	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/host"
	"github.com/kingrea/valobj/internal/config"
	"github.com/kingrea/valobj/internal/logging"
	"github.com/kingrea/valobj/synth"
)

// errInvalid is returned after every invalid contract has been reported.
var errInvalid = errors.New("one or more contracts are invalid")

// cli carries state shared by the subcommands once the root pre-run has
// loaded configuration.
type cli struct {
	projectDir string
	logLevel   string

	cfg *config.Config
	log *logging.Logger
}

func run(args []string, out, errOut io.Writer) error {
	app := &cli{}
	defer app.close()
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.Execute()
}

func newRootCommand(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "valobj",
		Short: "Synthesize immutable value types from contracts",
		Long: `valobj turns value-object contracts into concrete types.

A contract is a named set of read-only, typed attributes, declared in YAML or
as a Go interface. valobj validates contracts, shows their flattened shape,
synthesizes implementations in an interpreter and generates Go source for
them.

Settings come from ~/.config/valobj/config.yaml, the nearest .valobj.yaml and
VALOBJ_* environment variables, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}
	cmd.PersistentFlags().StringVarP(&app.projectDir, "project", "C", "", "project directory (default: working directory)")
	cmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newValidateCommand(app),
		newInspectCommand(app),
		newGenerateCommand(app),
		newCheckCommand(app),
		newBrowseCommand(app),
		newConfigCommand(app),
		newVersionCommand(),
	)
	return cmd
}

func (a *cli) setup() error {
	if a.projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		a.projectDir = cwd
	}
	cfg, err := config.Load(a.projectDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.logLevel != "" {
		level, err = zapcore.ParseLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	log, err := logging.New(a.projectDir, level)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *cli) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

// contracts loads the given paths, or the configured contracts directory
// when none are given.
func (a *cli) contracts(paths []string) ([]*contract.Contract, error) {
	if len(paths) == 0 {
		paths = []string{a.cfg.ContractsDir()}
	}
	contracts, err := contract.LoadPaths(paths...)
	if err != nil {
		return nil, err
	}
	a.log.Debug("loaded contracts", "paths", paths, "count", len(contracts))
	return contracts, nil
}

// implementer builds an Implementer for backend over a private host cache,
// so a run never shares containers with another.
func (a *cli) implementer(backend string) (*valobj.Implementer, error) {
	var factory synth.TypeFactory
	switch backend {
	case config.BackendReflect:
		factory = synth.NewReflectFactory(nil)
	case config.BackendInterpreted:
		factory = synth.NewInterpretedFactory()
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
	return valobj.New(
		valobj.WithFactory(factory),
		valobj.WithSuffix(a.cfg.Synth.Suffix),
		valobj.WithContainerName(a.cfg.Synth.Container),
		valobj.WithCache(host.NewCache()),
		valobj.WithLogger(a.log.Zap()),
	), nil
}
