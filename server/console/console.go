package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Executor is the world commands read by the Console are executed in.
type Executor interface {
	World() *world.World
}

// Console provides a simple CLI backed command source that reads commands from
// an io.Reader (defaulting to os.Stdin) and executes them in the world of the
// provided Executor.
type Console struct {
	exec   Executor
	log    *slog.Logger
	reader io.Reader
}

// New returns a Console bound to the provided server. The console reads from
// os.Stdin and writes command output to the supplied logger.
func New(exec Executor, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		exec:   exec,
		log:    log,
		reader: os.Stdin,
	}
}

// WithReader sets a custom reader for the console input. It enables testing the
// console without relying on os.Stdin.
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
	src := &Source{log: c.log}

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
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		<-c.exec.World().Exec(func(tx *world.Tx) {
			Execute(src, line, tx)
		})
	}
}

// Execute runs a command line, with or without a leading slash, on behalf of source. If no command exists
// with the name passed, an error is sent to the source.
func Execute(source cmd.Source, line string, tx *world.Tx) {
	name, args, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(line), "/"), " ")
	if name == "" {
		return
	}
	command, ok := cmd.ByAlias(name)
	if !ok {
		o := &cmd.Output{}
		o.Errorf("Unknown command: %s. Please check that the command exists and that you have permission to use it.", name)
		source.SendCommandOutput(o)
		return
	}
	command.Execute(strings.TrimSpace(args), source, tx)
}

// Source is the command source of the console. It holds every permission.
type Source struct {
	log *slog.Logger
}

// NewSource returns a console Source writing command output to log.
func NewSource(log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{log: log}
}

// Position ...
func (c *Source) Position() mgl64.Vec3 { return mgl64.Vec3{} }

// Name ...
func (c *Source) Name() string { return "Console" }

// SendCommandOutput ...
func (c *Source) SendCommandOutput(o *cmd.Output) {
	for _, msg := range o.Messages() {
		c.log.Info(fmt.Sprint(msg))
	}
	for _, err := range o.Errors() {
		c.log.Error(err.Error())
	}
}
