package exec

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Success(t *testing.T) {
	requireSh(t)
	r := NewRunner()

	res, err := r.Run(context.Background(), t.TempDir(), time.Second, "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("Output = %q, want both streams", res.Output)
	}
	if res.TimedOut {
		t.Error("TimedOut should be false")
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireSh(t)
	r := NewRunner()

	res, err := r.Run(context.Background(), "", time.Second, "sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	requireSh(t)
	r := NewRunner()

	start := time.Now()
	res, err := r.Run(context.Background(), "", 200*time.Millisecond, "sh", "-c", "sleep 5")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut should be true")
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Run took %v, timeout was not enforced", elapsed)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewRunner()

	_, err := r.Run(context.Background(), "", time.Second, "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Error("expected error for missing binary")
	}
}
