package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/shared"
	"github.com/desertthunder/synoplay/internal/tasks"
)

// parseParams turns key=value pairs into query parameters.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key=value", shared.ErrInvalidInput, pair)
		}
		params[key] = value
	}
	return params, nil
}

// APICall calls a web API method with the current session and prints the data member of the envelope.
func (r *Runner) APICall(ctx context.Context, cmd *cli.Command) error {
	cgi := strings.TrimSpace(cmd.StringArg("cgi"))
	api := strings.TrimSpace(cmd.StringArg("api"))
	method := strings.TrimSpace(cmd.StringArg("method"))
	if cgi == "" || api == "" || method == "" {
		return fmt.Errorf("%w: cgi path, api and method", shared.ErrMissingArgument)
	}

	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	c, ok := r.library.(caller)
	if !ok {
		return fmt.Errorf("%w: raw calls on this library", shared.ErrNotImplemented)
	}

	r.logger.Info("calling web API", "cgi", cgi, "api", api, "method", method, "version", cmd.Int("version"))

	data, err := c.Call(ctx, cgi, api, method, cmd.Int("version"), params)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return r.writeJSON(data, cmd.Bool("pretty"))
}

// watchProgress logs progress updates until the channel is closed.
func (r *Runner) watchProgress(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()
	return done
}

// Dump prints the session and the first page of songs and albums as JSON. The session id is masked.
func (r *Runner) Dump(ctx context.Context, cmd *cli.Command) error {
	progress := make(chan tasks.ProgressUpdate, 10)
	done := r.watchProgress(progress)

	result, err := r.engine.Dump(ctx, progress, r.pageSize(cmd))
	close(progress)
	<-done

	if result == nil {
		return err
	}
	if err != nil {
		r.logger.Warn("dump incomplete", "error", err)
	}

	dump := result.Data()

	if path := cmd.String("save"); path != "" {
		data, merr := shared.MarshalJSON(dump, true)
		if merr != nil {
			return fmt.Errorf("failed to marshal dump: %w", merr)
		}
		if werr := os.WriteFile(path, data, 0600); werr != nil {
			r.logger.Warn("failed to save dump", "error", werr)
		} else {
			r.logger.Info("dump saved", "file", path)
		}
	}

	if werr := r.writeJSON(dump, cmd.Bool("pretty")); werr != nil {
		return werr
	}
	return err
}
