package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes an executable shell script into a temp dir.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Events:     []string{EventSessionCompleted},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	p := scriptPlugin(t, "link", `cat <<'END'
{"success":true,"url":"https://example.test/r/42","data":{"message":"shared"}}
END
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{
		Event:   EventSessionCompleted,
		Payload: json.RawMessage(`{"id":"42"}`),
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Errorf("response = %+v, want success", resp)
	}
	if resp.URL != "https://example.test/r/42" {
		t.Errorf("URL = %q", resp.URL)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "shared" {
		t.Errorf("message = %q, want shared", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	p := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{
		Event:   EventSessionCompleted,
		Config:  json.RawMessage(`{"base":"https://example.test"}`),
		Payload: json.RawMessage(`{"hits":8}`),
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if data.Received.Event != EventSessionCompleted {
		t.Errorf("event = %q", data.Received.Event)
	}
	if string(data.Received.Payload) != `{"hits":8}` {
		t.Errorf("payload = %s", data.Received.Payload)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	p := scriptPlugin(t, "slow", "exec sleep 5\n")

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Event: EventSessionCompleted})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want timeout", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{"invalid json", "echo not-json\n", "failed to parse plugin response"},
		{"non-zero exit", "echo boom >&2\nexit 3\n", "stderr: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scriptPlugin(t, "bad", tt.script)
			_, err := NewExecutor(time.Second).Execute(context.Background(), p, &Request{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	p := scriptPlugin(t, "refuse", `echo '{"success":false,"error":"sharing disabled"}'
`)

	resp, err := NewExecutor(time.Second).Execute(context.Background(), p, &Request{})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.Success || resp.Error != "sharing disabled" {
		t.Errorf("response = %+v", resp)
	}
}

func TestNewExecutor(t *testing.T) {
	if e := NewExecutor(0); e.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", e.timeout, DefaultTimeout)
	}
	if e := NewExecutor(time.Second); e.timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", e.timeout)
	}
}
