// Package commands holds the cobra commands of the shareledger CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shareledger/internal/log"
	"shareledger/internal/report"
	"shareledger/internal/services"
)

// Env is what the commands run against.
type Env struct {
	Reports  *services.ReportService
	Recorder *services.RecordingService
	Writer   *report.Writer
	Logger   *log.Logger
}

// Loader opens the environment. The returned func releases it.
type Loader func(ctx context.Context) (*Env, func(), error)

// Options contain configuration for the CLI
type Options struct {
	Load  Loader
	Out   io.Writer
	Print Printer
	Now   func() time.Time
}

// CLI represents the command-line interface
type CLI struct {
	load    Loader
	out     io.Writer
	print   Printer
	now     func() time.Time
	env     *Env
	release func()
	rootCmd *cobra.Command
}

// New creates a new CLI instance
func New(opts Options) *CLI {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Print == nil {
		opts.Print = TerminalPrinter(100)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cli := &CLI{
		load:  opts.Load,
		out:   opts.Out,
		print: opts.Print,
		now:   opts.Now,
	}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the command line in args and releases the environment.
func (cli *CLI) Execute(ctx context.Context, args []string) error {
	defer cli.close()
	cli.rootCmd.SetArgs(args)
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shareledger",
		Short:         "Track and reconcile shared household expenses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.out)

	cmd.AddCommand(cli.newAddExpenseCmd())
	cmd.AddCommand(cli.newAddContributionCmd())
	cmd.AddCommand(cli.newReportCmd())
	cmd.AddCommand(cli.newOverviewCmd())
	cmd.AddCommand(cli.newRegenerateCmd())
	cmd.AddCommand(cli.newPeriodsCmd())

	return cmd
}

// environment opens the environment on first use.
func (cli *CLI) environment(ctx context.Context) (*Env, error) {
	if cli.env != nil {
		return cli.env, nil
	}
	if cli.load == nil {
		return nil, errors.New("no environment loader configured")
	}
	env, release, err := cli.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	if env.Logger == nil {
		env.Logger = log.Nop()
	}
	cli.env, cli.release = env, release
	return env, nil
}

func (cli *CLI) close() {
	if cli.release != nil {
		cli.release()
	}
	cli.env, cli.release = nil, nil
}
