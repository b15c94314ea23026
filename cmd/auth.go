package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/reeltrack/internal/client"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/urfave/cli/v3"
)

const tokenFile = "token"

func (r *Runner) tokenPath() (string, error) {
	dir := r.stateDir
	if dir == "" {
		var err error
		if dir, err = shared.StateDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, tokenFile), nil
}

// saveToken writes the session token readable only by the current user.
func (r *Runner) saveToken(token string) error {
	path, err := r.tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	r.logger.Debug("token saved", "path", path)
	return nil
}

func (r *Runner) loadToken() (string, error) {
	path, err := r.tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: run 'reeltrack login' first", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: run 'reeltrack login' first", shared.ErrNotAuthenticated)
	}
	return token, nil
}

func (r *Runner) clearToken() error {
	path, err := r.tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// siteClient returns a client for --server, falling back to the configured site URL.
func (r *Runner) siteClient(cmd *cli.Command) (*client.Client, error) {
	server := cmd.String("server")
	if server == "" {
		server = r.config.Server.SiteURL
	}
	return client.New(server, client.WithLogger(r.logger))
}

// authedClient is [Runner.siteClient] with the saved token restored.
func (r *Runner) authedClient(cmd *cli.Command) (*client.Client, error) {
	token, err := r.loadToken()
	if err != nil {
		return nil, err
	}
	c, err := r.siteClient(cmd)
	if err != nil {
		return nil, err
	}
	c.SetToken(token)
	return c, nil
}

// sessionError points the user back at login when the saved token no longer works.
func sessionError(err error) error {
	if client.IsUnauthenticated(err) {
		return fmt.Errorf("%w: session expired, run 'reeltrack login'", shared.ErrNotAuthenticated)
	}
	return err
}

// Login signs in through the site and saves the issued token.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password (or REELTRACK_PASSWORD) are required", shared.ErrMissingArgument)
	}

	c, err := r.siteClient(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "server", c.BaseURL(), "email", email)
	user, err := c.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := r.saveToken(c.Token()); err != nil {
		return err
	}
	return r.writePlain("✓ Signed in as %s <%s>\n", user.Name, user.Email)
}

// Logout revokes the session on the server and removes the saved token.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	c, err := r.authedClient(cmd)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("Not signed in\n")
	}
	if err != nil {
		return err
	}

	if err := c.Logout(ctx); err != nil {
		r.logger.Warn("server logout failed, removing local token anyway", "error", err)
	}
	if err := r.clearToken(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// Whoami prints the signed-in account.
func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	c, err := r.authedClient(cmd)
	if err != nil {
		return err
	}

	user, err := c.Me(ctx)
	if err != nil {
		return sessionError(err)
	}

	verified := "no"
	if user.Verified {
		verified = "yes"
	}
	r.writePlain("Name:     %s\n", user.Name)
	r.writePlain("Email:    %s\n", user.Email)
	return r.writePlain("Verified: %s\n", verified)
}
