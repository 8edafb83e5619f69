package commands

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"timerlist/internal/realtime"
	"timerlist/internal/timers"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestClientCommands(t *testing.T) {
	store := timers.NewStore()
	srv := httptest.NewServer(realtime.New(store, nil, "", nil).Handler())
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "stop")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !strings.Contains(out, "Timers stopped (0)") {
		t.Errorf("unexpected stop output %q", out)
	}

	out, err = runCLI(t, "--url", srv.URL, "add", "Tea", "5")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !strings.Contains(out, "Timers running (1)") || !strings.Contains(out, "1. Tea\t5") {
		t.Errorf("unexpected add output %q", out)
	}

	out, err = runCLI(t, "--url", srv.URL, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "Tea") {
		t.Errorf("unexpected status output %q", out)
	}

	out, err = runCLI(t, "--url", srv.URL, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Errorf("expected 2 history lines, got %d: %q", lines, out)
	}

	out, err = runCLI(t, "--url", srv.URL, "history", "--since", "1")
	if err != nil {
		t.Fatalf("history --since failed: %v", err)
	}
	if !strings.HasPrefix(out, "2\t") || strings.Count(out, "\n") != 1 {
		t.Errorf("expected only seq 2 after 1, got %q", out)
	}

	if len(store.Timers()) != 1 || store.Timers()[0] != (timers.Timer{Name: "Tea", Duration: "5"}) {
		t.Errorf("unexpected store timers %#v", store.Timers())
	}
}

func TestAddRequiresTwoArgs(t *testing.T) {
	if _, err := runCLI(t, "add", "Tea"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestServeFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	serve.Flags().Set("port", "9100")
	serve.Flags().Set("inbox", "/tmp/inbox")

	if err := root.PersistentPreRunE(serve, nil); err != nil {
		t.Fatalf("pre-run failed: %v", err)
	}
	if cfg.Port != 9100 || cfg.InboxDir != "/tmp/inbox" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestServeFlagsAreValidated(t *testing.T) {
	tests := []struct {
		flag  string
		value string
	}{
		{"history", "0"},
		{"history", "-3"},
		{"port", "-5"},
		{"port", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.flag+"="+tt.value, func(t *testing.T) {
			root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
			serve, _, err := root.Find([]string{"serve"})
			if err != nil {
				t.Fatalf("find serve: %v", err)
			}
			if err := serve.Flags().Set(tt.flag, tt.value); err != nil {
				t.Fatalf("set flag: %v", err)
			}
			if err := root.PersistentPreRunE(serve, nil); err == nil {
				t.Fatalf("expected --%s %s to be rejected", tt.flag, tt.value)
			}
		})
	}
}
