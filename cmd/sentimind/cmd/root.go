package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/octabyte/sentimind-session/config"
	"github.com/octabyte/sentimind-session/lib"
	"github.com/octabyte/sentimind-session/utils/logger"
)

type app struct {
	configPath string
	jsonOutput bool
	client     *lib.Client
}

// newRootCmd builds the command tree. Every subcommand runs against a client
// whose session was bootstrapped from the configured credential store.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sentimind",
		Short: "Sentimind is a command line client for the Sentimind posting service",
		Long: `Post short texts and browse the feed classified by sentiment.
Credentials are kept between runs in the configured store and renewed automatically.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the configuration file")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newResetPasswordCmd(a),
		newPostsCmd(a),
		newCategoriesCmd(a),
	)
	return root
}

// Run executes the command line in args and releases the client afterwards,
// whether the command succeeded or not.
func Run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		os.Exit(1)
	}
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(&cfg.Log); err != nil {
		return err
	}

	client, err := lib.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	a.client = client

	if err := client.Session.Bootstrap(ctx); err != nil {
		logger.LogDebugf("stored session discarded: %v", err)
	}
	return nil
}

func (a *app) close() error {
	defer logger.Sync()
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// print writes v as JSON with --json, otherwise the text produced by human.
func (a *app) print(w io.Writer, v interface{}, human func(io.Writer)) error {
	if !a.jsonOutput {
		human(w)
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
