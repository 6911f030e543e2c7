package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oksasatya/go-ddd-auth-core/pkg/authclient"
)

const defaultServer = "http://localhost:8080"

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

type app struct {
	server    string
	storePath string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	newAPI func(server string) authclient.API
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		newAPI: func(server string) authclient.API { return authclient.NewHTTPClient(server) },
	}
}

func (a *app) manager() (*authclient.Manager, error) {
	path := a.storePath
	if path == "" {
		p, err := authclient.DefaultStorePath()
		if err != nil {
			return nil, fmt.Errorf("resolve session path: %w", err)
		}
		path = p
	}
	return authclient.NewManager(a.newAPI(a.server), authclient.NewFileStore(path)), nil
}

// password reads one line from stdin when fromStdin is set, otherwise it
// prompts on the terminal without echo.
func (a *app) password(fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	_, _ = fmt.Fprint(a.errOut, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(a.errOut)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Log in to the auth API and manage the local session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	server := os.Getenv("AUTHCTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&a.server, "server", server, "auth API base URL (env AUTHCTL_SERVER)")
	root.PersistentFlags().StringVar(&a.storePath, "store", "", "session file (default <config dir>/authctl/session.json)")

	root.AddCommand(
		registerCmd(a),
		loginCmd(a),
		refreshCmd(a),
		statusCmd(a),
		tokenCmd(a),
		logoutCmd(a),
	)
	return root
}

func run(a *app, fn func(cmd *cobra.Command, m *authclient.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		m, err := a.manager()
		if err != nil {
			return err
		}
		return fn(cmd, m)
	}
}

// printError writes err once, with the server's message, request id and
// field details for API errors.
func printError(w io.Writer, err error) {
	var apiErr *authclient.APIError
	if !errors.As(err, &apiErr) {
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	if apiErr.RequestID != "" {
		_, _ = fmt.Fprintf(w, "error: %s (request %s)\n", apiErr.Message, apiErr.RequestID)
	} else {
		_, _ = fmt.Fprintf(w, "error: %s\n", apiErr.Message)
	}
	for k, v := range apiErr.Details {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", k, v)
	}
}

func printSession(w io.Writer, u *authclient.AuthUser, now time.Time) {
	_, _ = fmt.Fprintf(w, "logged in as %s <%s> (%s)\n", u.User.Name, u.User.Email, u.User.Role)
	_, _ = fmt.Fprintf(w, "access token expires %s (in %s)\n",
		u.ExpiresAt.Local().Format(time.RFC3339), u.ExpiresAt.Sub(now).Round(time.Second))
}
