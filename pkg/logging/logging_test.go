package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{})

	ctx := WithRPCMessage(context.Background(), &RPCMessage{Method: "tools/call", ID: "7"})
	ctx = WithToolCall(ctx, &ToolCall{Name: "echo", CallID: "abc"})
	logger.InfoContext(ctx, "handled")

	out := buf.String()
	for _, want := range []string{"rpc.method=tools/call", "rpc.id=7", "tool.name=echo", "tool.call_id=abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestAttributesSurviveWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{}).With("component", "stdio")

	ctx := WithRPCMessage(context.Background(), &RPCMessage{Method: "ping", ID: "1"})
	logger.InfoContext(ctx, "handled")

	out := buf.String()
	if !strings.Contains(out, "component=stdio") || !strings.Contains(out, "rpc.method=ping") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug logged at info level: %q", buf.String())
	}

	New(&buf, Options{Debug: true}).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug not logged with Debug: %q", buf.String())
	}
}

func TestQuietDiscardsEverything(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Debug: true, Quiet: true})
	logger.Error("nope")
	logger.Debug("nope")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}
