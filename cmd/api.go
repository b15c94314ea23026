package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/urfave/cli/v3"
)

// backendAPI returns the raw backend client, authenticated with the saved token when auth is set.
func (r *Runner) backendAPI(auth bool) (*services.APIService, error) {
	if !auth {
		return r.api, nil
	}
	token, err := r.loadToken()
	if err != nil {
		return nil, err
	}
	return r.api.WithToken(token), nil
}

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	api, err := r.backendAPI(cmd.Bool("auth"))
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}
	if err := shared.ValidateJSON([]byte(data)); err != nil {
		return err
	}

	api, err := r.backendAPI(cmd.Bool("auth"))
	if err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	return r.writeResponse(resp, true)
}

// APIHealth checks the backend health endpoint.
func (r *Runner) APIHealth(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking backend health")

	resp, err := r.api.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	status := "ok"
	if body, ok := resp.JSONData.(map[string]any); ok {
		if s, ok := body["status"].(string); ok && s != "" {
			status = s
		}
	}

	r.writePlain("✓ Backend is healthy\n")
	return r.writePlain("Status: %s\n", status)
}
