package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"

	"github.com/0xRadioAc7iv/go-kvs/core"
)

func runLine(t *testing.T, s *core.Store, line string) (string, error) {
	t.Helper()

	args, err := shellquote.Split(line)
	if err != nil {
		t.Fatalf("split %q: %v", line, err)
	}

	var out bytes.Buffer
	err = handleCommand(s, args, &out)
	return strings.TrimSpace(out.String()), err
}

func TestHandleCommand(t *testing.T) {
	s, err := core.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	steps := []struct {
		line string
		want string
	}{
		{`set foo bar`, "ok"},
		{`get foo`, "bar"},
		{`SET city "new york"`, "ok"},
		{`get city`, "new york"},
		{`exists city`, "true"},
		{`count`, "2"},
		{`delete city`, "ok"},
		{`get city`, "nil"},
		{`exists city`, "false"},
		{`rm city`, "Key not found"},
		{`compact`, "ok"},
		{`get foo`, "bar"},
		{`list`, "foo"},
		{`bogus`, "Invalid Command"},
		{``, ""},
	}

	for _, step := range steps {
		got, err := runLine(t, s, step.line)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", step.line, err)
		}
		if got != step.want {
			t.Fatalf("%q: got %q, want %q", step.line, got, step.want)
		}
	}
}

func TestHandleCommandErrors(t *testing.T) {
	s, err := core.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := runLine(t, s, `set onlykey`); err == nil {
		t.Errorf("expected argument count error")
	}
	if _, err := runLine(t, s, `get`); err == nil {
		t.Errorf("expected argument count error")
	}
	if _, err := runLine(t, s, `exit`); !errors.Is(err, errQuit) {
		t.Errorf("expected errQuit, got %v", err)
	}

	out, err := runLine(t, s, `stats`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "keys:") || !strings.Contains(out, "compaction threshold:") {
		t.Errorf("unexpected stats output %q", out)
	}
}
