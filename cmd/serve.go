package main

import (
	"cmp"
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/server"
	"github.com/desertthunder/synoplay/internal/shared"
	"github.com/desertthunder/synoplay/internal/web"
)

// Serve runs the web front end until the command is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := shared.ServerConfig{
		Host: cmp.Or(cmd.String("host"), r.config.Server.Host),
		Port: cmp.Or(cmd.Int("port"), r.config.Server.Port),
	}.Addr()

	logger := shared.WithLogger(r.logger, "component", "web")
	app := web.New(web.Opts{
		Library:  r.library,
		Logger:   logger,
		PageSize: r.pageSize(cmd),
		Username: r.config.NAS.Username,
	})

	ready := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe(ctx, addr, app.Handler(), logger, ready)
	}()

	select {
	case err := <-errs:
		return err
	case bound := <-ready:
		url := "http://" + browserHost(bound)
		r.writePlain("✓ Serving %s (ctrl+c to stop)\n", url)
		if cmd.Bool("open") {
			if err := shared.OpenBrowser(url); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}
	}

	return <-errs
}

// browserHost rewrites wildcard listen addresses to localhost.
func browserHost(addr string) string {
	for _, wildcard := range []string{"0.0.0.0:", "[::]:"} {
		if port, ok := strings.CutPrefix(addr, wildcard); ok {
			return "localhost:" + port
		}
	}
	return addr
}
