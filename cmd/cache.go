package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/models"
)

// CacheClear removes the cached endpoint and session id.
//
// The session is not logged out on the NAS; use logout for that.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return r.writePlain("No session cache configured\n")
	}

	if err := r.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session cache: %w", err)
	}
	r.logger.Debug("session cache cleared", "keys", []string{models.CacheKeyURL, models.CacheKeySID})

	return r.writePlain("✓ Session cache cleared\n")
}
