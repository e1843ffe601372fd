package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/linesmerrill/forensic-case-api/client"
	"github.com/linesmerrill/forensic-case-api/logging"
)

// cli carries what every command needs once the root flags are parsed
type cli struct {
	v   *viper.Viper
	out io.Writer
	err io.Writer
	c   *client.Client
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "casectl", "token.yaml")
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	app := &cli{v: viper.New(), out: out, err: errOut}

	root := &cobra.Command{
		Use:           "casectl",
		Short:         "Forensic case administration from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.connect()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.String("api-url", client.DefaultBaseURL, "base URL of the forensic case API")
	flags.String("token-file", defaultTokenFile(), "where the access token is kept between runs")
	flags.Bool("verbose", false, "log requests to stderr")

	app.v.SetEnvPrefix("CASECTL")
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()
	_ = app.v.BindPFlags(flags)

	root.AddCommand(
		app.loginCmd(),
		app.logoutCmd(),
		app.whoamiCmd(),
		app.occurrencesCmd(),
		app.movementsCmd(),
		app.deadlinesCmd(),
		app.usersCmd(),
	)
	return root
}

func (a *cli) connect() error {
	log := logging.New(a.err, a.v.GetBool("verbose"))
	store := client.NewFileTokenStore(a.v.GetString("token-file"))
	c, err := client.New(a.v.GetString("api-url"),
		client.WithLogger(log),
		client.WithSession(client.NewSession(store, log)),
		client.WithNotifier(client.NotifierFunc(func(message string) {
			fmt.Fprintln(a.err, message)
		})),
	)
	if err != nil {
		return err
	}
	a.c = c
	return nil
}

// reportedError wraps an error whose notice was already printed
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// guard runs a route guard and turns a refusal into an error
func (a *cli) guard(g func(*client.Session) client.Decision) error {
	d := g(a.c.Session())
	if d.Allowed {
		return nil
	}
	if d.Redirect == client.LoginRoute {
		return fmt.Errorf("not logged in, run casectl login first")
	}
	return fmt.Errorf("%s", d.Notice)
}

func (a *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
