package unify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ShutdownCommand is the container command that shuts the container down
// from the command loop.
const ShutdownCommand = "shutdown"

type queuedCommand struct {
	name   string
	params []string
}

type commandLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Command queues a container command for the background command loop.
// "shutdown" stops the container; any other name runs the broadcast method
// registered under it on this node only.
func (c *Container) Command(name string, params ...string) error {
	switch c.state.Load() {
	case stateStarted:
	case stateStopping, stateShutdown:
		return ErrContainerShutdown
	default:
		return ErrContainerNotStarted
	}

	c.commandsMu.Lock()
	c.commands = append(c.commands, queuedCommand{name: name, params: append([]string(nil), params...)})
	c.commandsMu.Unlock()
	return nil
}

func (c *Container) startCommandLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	loop := &commandLoop{cancel: cancel, done: make(chan struct{})}
	c.loop = loop

	go func() {
		defer close(loop.done)

		ticker := time.NewTicker(c.opts.commandInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.runCommands(ctx) {
					return
				}
			}
		}
	}()
}

// stopCommandLoop stops the loop and, unless called from the loop itself,
// waits for it to exit.
func (c *Container) stopCommandLoop(wait bool) {
	if c.loop == nil {
		return
	}

	c.loop.cancel()
	if wait {
		<-c.loop.done
	}
}

// runCommands pulls cluster commands, then drains the container command
// queue. It reports whether the container was shut down.
func (c *Container) runCommands(ctx context.Context) bool {
	if c.IsClusterMode() {
		c.applyClusterCommands(ctx)
	}

	c.commandsMu.Lock()
	queued := c.commands
	c.commands = nil
	c.commandsMu.Unlock()

	for _, cmd := range queued {
		c.metrics.commands.WithLabelValues(cmd.name).Inc()

		if cmd.name == ShutdownCommand {
			c.logger.Info("Shutdown requested by command")
			if err := c.shutdown(false); err != nil {
				c.logger.Error("Shutdown by command failed", zap.Error(err))
			}
			return true
		}

		if err := c.applyBroadcast(ctx, ClusterCommand{Command: cmd.name, Params: cmd.params, Origin: c.NodeID()}); err != nil {
			c.logger.Warn("Container command failed", zap.String("command", cmd.name), zap.Error(err))
		}
	}

	return false
}

func (c *Container) applyClusterCommands(ctx context.Context) {
	commands, err := c.cluster.ClusterCommands(ctx)
	if err != nil {
		c.logger.Warn("Failed to fetch cluster commands", zap.Error(err))
		return
	}

	for _, cmd := range commands {
		if err := c.applyBroadcast(ctx, cmd); err != nil {
			c.logger.Warn("Cluster command failed",
				zap.String("command", cmd.Command),
				zap.String("origin", cmd.Origin),
				zap.Error(err))
		}
	}
}
