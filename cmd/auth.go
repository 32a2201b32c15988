package main

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/shared"
)

// Login authenticates with Audio Station and caches the session.
//
// Flags override the [nas] section; the password falls back to SYNOPLAY_PASSWORD and then the config file.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	endpoint := strings.TrimSpace(cmp.Or(cmd.String("url"), r.config.NAS.URL, r.library.Session().BaseURL))
	username := strings.TrimSpace(cmp.Or(cmd.String("username"), r.config.NAS.Username))
	password := cmp.Or(cmd.String("password"), r.config.NAS.Password)

	if endpoint == "" {
		return fmt.Errorf("%w: set --url, nas.url or %s", shared.ErrMissingConfig, shared.EnvNASURL)
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrMissingCredentials)
	}

	normalized := r.library.SetEndpoint(endpoint)
	r.logger.Info("logging in", "endpoint", normalized, "account", username)

	result, err := r.library.Login(ctx, username, password)
	if err != nil {
		return err
	}

	r.writePlain("✓ Logged in to %s\n", normalized)
	r.writePlain("  Session: %s\n", shared.MaskSecret(result.SID))
	return nil
}

// Logout ends the session. Remote failures are logged by the client; the local session is always cleared.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	had := r.library.Session().SID != ""
	r.library.Logout(ctx)

	if !had {
		return r.writePlain("No active session; cache cleared\n")
	}
	return r.writePlain("✓ Logged out\n")
}

type statusData struct {
	Endpoint      string `json:"endpoint"`
	SID           string `json:"sid,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Verified      *bool  `json:"verified,omitempty"`
	Error         string `json:"error,omitempty"`
	Cache         string `json:"cache"`
}

// Status prints the endpoint and masked session id, optionally checking the session against the NAS.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	session := r.library.Session()
	status := statusData{
		Endpoint:      session.BaseURL,
		SID:           shared.MaskSecret(session.SID),
		Authenticated: session.Authenticated(),
		Cache:         r.config.Cache.Driver,
	}
	if cmd.Bool("no-cache") {
		status.Cache = "memory"
	}

	if cmd.Bool("check") && status.Authenticated {
		_, err := r.library.ListSongs(ctx, 0, 1)
		ok := err == nil
		status.Verified = &ok
		if err != nil {
			status.Error = err.Error()
			status.Authenticated = r.library.Session().Authenticated()
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Audio Station session")
	r.writePlain("Endpoint: %s\n", cmp.Or(status.Endpoint, "(not set)"))
	r.writePlain("Cache:    %s\n", status.Cache)
	if !status.Authenticated {
		r.writePlain("Session:  ✗ Not logged in\n")
	} else {
		r.writePlain("Session:  ✓ %s\n", status.SID)
	}
	if status.Verified != nil {
		if *status.Verified {
			r.writePlain("Check:    ✓ Session accepted by the NAS\n")
		} else {
			r.writePlain("Check:    ✗ %s\n", status.Error)
		}
	}
	return nil
}
