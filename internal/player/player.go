// Package player hands stream URLs to an external audio player process.
//
// Only one playback runs at a time: [ExternalPlayer.Play] stops the previous process first.
package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/synoplay/internal/shared"
)

var execCommand = exec.CommandContext

// Player plays stream URLs.
type Player interface {
	Play(ctx context.Context, streamURL string) error
	Stop() error
}

var _ Player = (*ExternalPlayer)(nil)

// ExternalPlayer runs a configured command (mpv by default) with the stream URL as its last argument.
type ExternalPlayer struct {
	command string
	args    []string
	logger  *log.Logger

	mu      sync.Mutex
	current *playback
}

type playback struct {
	url    string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewExternalPlayer creates an [ExternalPlayer] from the [player] config section.
func NewExternalPlayer(config shared.PlayerConfig, logger *log.Logger) *ExternalPlayer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExternalPlayer{
		command: config.Command,
		args:    slices.Clone(config.Args),
		logger:  logger,
	}
}

// Play starts the player on streamURL and returns once the process is running.
//
// Cancelling ctx kills the process.
func (p *ExternalPlayer) Play(ctx context.Context, streamURL string) error {
	if p.command == "" {
		return fmt.Errorf("%w: player command is empty", shared.ErrInvalidConfig)
	}
	if streamURL == "" {
		return fmt.Errorf("%w: stream url", shared.ErrMissingArgument)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// At most one process runs: the previous one exits before the next starts.
	if err := p.halt(); err != nil {
		p.logger.Warn("failed to stop previous playback", "error", err)
	}

	pctx, cancel := context.WithCancel(ctx)
	cmd := execCommand(pctx, p.command, append(slices.Clone(p.args), streamURL)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	pb := &playback{url: streamURL, cancel: cancel, done: make(chan struct{})}
	go func() {
		pb.err = cmd.Wait()
		cancel()
		close(pb.done)
	}()

	p.current = pb
	p.logger.Debug("playback started", "command", p.command, "pid", cmd.Process.Pid)
	return nil
}

// Wait blocks until the current playback ends and returns the process error, if any.
func (p *ExternalPlayer) Wait() error {
	p.mu.Lock()
	pb := p.current
	p.mu.Unlock()

	if pb == nil {
		return nil
	}
	<-pb.done
	return pb.err
}

// Playing reports whether a player process is still running.
func (p *ExternalPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return false
	}
	select {
	case <-p.current.done:
		return false
	default:
		return true
	}
}

// Stop kills the current playback, if any, and waits for the process to exit.
func (p *ExternalPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.halt()
}

// halt kills the current playback and waits for it to exit. The caller holds p.mu.
func (p *ExternalPlayer) halt() error {
	pb := p.current
	p.current = nil
	if pb == nil {
		return nil
	}

	pb.cancel()
	<-pb.done

	var exitErr *exec.ExitError
	if pb.err != nil && !errors.As(pb.err, &exitErr) && !errors.Is(pb.err, context.Canceled) {
		return pb.err
	}
	return nil
}
