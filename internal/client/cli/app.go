package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/config"
)

type App struct {
	config *config.Config
	client client.Client
	reader *bufio.Reader
	out    io.Writer
	email  string
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	token, err := loadToken(c.TokenFile)
	if err != nil {
		return nil, err
	}
	apiClient.SetToken(token)

	return &App{
		config: c,
		client: apiClient,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to taskkeeper (type 'help' for commands)")

	if err := a.client.Ping(ctx); err != nil {
		fmt.Fprintf(a.out, "Warning: %v\n", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.client.Token() != ""
}

func (a *App) getStatus() string {
	switch {
	case !a.isLoggedIn():
		return ""
	case a.email != "":
		return fmt.Sprintf("(%s)", a.email)
	default:
		return "(logged in)"
	}
}

// handleAuthError drops a session the server no longer accepts.
func (a *App) handleAuthError(err error) error {
	if errors.Is(err, client.ErrUnauthorized) && a.isLoggedIn() {
		a.client.SetToken("")
		a.email = ""
		if rmErr := removeToken(a.config.TokenFile); rmErr != nil {
			return errors.Join(err, rmErr)
		}
		return fmt.Errorf("%w (session ended, please log in again)", err)
	}
	return err
}
