package console

import (
	"fmt"
	"strings"
	"testing"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

type recordingSource struct {
	messages []string
	errors   []string
}

func (*recordingSource) Position() mgl64.Vec3 { return mgl64.Vec3{} }

func (s *recordingSource) SendCommandOutput(o *cmd.Output) {
	for _, m := range o.Messages() {
		s.messages = append(s.messages, fmt.Sprint(m))
	}
	for _, err := range o.Errors() {
		s.errors = append(s.errors, err.Error())
	}
}

type echoCommand struct {
	Text cmd.Varargs `cmd:"text"`
}

func (e echoCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	o.Printf("echo: %s", string(e.Text))
}

func init() {
	cmd.Register(cmd.New("consoleecho", "Echoes its arguments.", nil, echoCommand{}))
}

func TestExecuteRunsCommand(t *testing.T) {
	for _, line := range []string{"consoleecho hello world", "/consoleecho hello world", "  consoleecho hello world  "} {
		src := &recordingSource{}
		Execute(src, line, nil)
		if len(src.messages) != 1 || src.messages[0] != "echo: hello world" {
			t.Fatalf("Execute(%q) output = %v, errors = %v", line, src.messages, src.errors)
		}
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	src := &recordingSource{}
	Execute(src, "/doesnotexist", nil)
	if len(src.errors) != 1 || !strings.Contains(src.errors[0], "doesnotexist") {
		t.Fatalf("expected unknown command error, got %v", src.errors)
	}
	Execute(src, "   ", nil)
	if len(src.errors) != 1 {
		t.Fatalf("expected empty line to be ignored")
	}
}
