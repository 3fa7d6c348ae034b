package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Console reads command lines from an io.Reader (defaulting to os.Stdin) and
// runs them in a world. Commands that may only be run by non-players, such
// as /tutorial sessions, are run from here.
type Console struct {
	w      *world.World
	log    *slog.Logger
	reader io.Reader
}

// New returns a Console running commands in the world passed. Command output
// is written to the supplied logger.
func New(w *world.World, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		w:      w,
		log:    log.With("subsystem", "console"),
		reader: os.Stdin,
	}
}

// WithReader sets a custom reader for the console input.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run starts consuming commands from the console. It blocks until the context
// is cancelled or the underlying reader reaches EOF.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	src := &source{log: c.log}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("Console input error.", "error", err)
			}
			return
		}
		name, args, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		command, ok := cmd.ByAlias(name)
		if !ok {
			c.log.Error("Unknown command.", "command", name)
			continue
		}
		<-c.w.Exec(func(tx *world.Tx) {
			command.Execute(args, src, tx)
		})
	}
}

// parseLine splits a command line into the command name and its arguments.
// The leading slash is optional.
func parseLine(line string) (name, args string, ok bool) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	if line == "" {
		return "", "", false
	}
	name, args, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(args), true
}

type source struct {
	log *slog.Logger
}

func (*source) Position() mgl64.Vec3 { return mgl64.Vec3{} }

func (*source) Name() string { return "Console" }

func (s *source) SendCommandOutput(o *cmd.Output) {
	for _, msg := range o.Messages() {
		s.log.Info(msg.String())
	}
	for _, err := range o.Errors() {
		s.log.Error(err.Error())
	}
}
