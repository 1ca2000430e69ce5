package config

import (
	"bytes"
	"testing"
)

func TestExitfWritesMessageAndCode(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	prevStderr, prevExit := stderr, exit
	stderr = &buf
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		stderr, exit = prevStderr, prevExit
	})

	Exitf("parse config: %s", "bad seed")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := buf.String(); got != "parse config: bad seed\n" {
		t.Fatalf("stderr = %q", got)
	}
}
