package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const remoteStrategy = `{
	"success": true,
	"strategy": {
		"positioning": {"title": "Positioning", "content": "Own the morning.", "key_points": ["Speed"], "recommendations": ["Launch app"]},
		"channels": {"title": "Channels", "content": "Digital first.", "key_points": [], "recommendations": []}
	}
}`

// stubBackend serves the strategy API; failGenerate makes generation return 500.
type stubBackend struct {
	*httptest.Server
	generateCalls atomic.Int32
	failGenerate  bool
}

func newStubBackend(t *testing.T, failGenerate bool) *stubBackend {
	t.Helper()
	b := &stubBackend{failGenerate: failGenerate}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/strategies/generate/":
			b.generateCalls.Add(1)
			if b.failGenerate {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"detail":"model offline"}`)
				return
			}
			_, _ = io.WriteString(w, remoteStrategy)
		case r.Method == http.MethodGet && r.URL.Path == "/strategies/":
			_, _ = io.WriteString(w, `[{"id":"s1","company_name":"Acme Coffee"}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/templates/":
			_, _ = io.WriteString(w, `{"templates":["growth"]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"not found"}`)
		}
	}))
	t.Cleanup(b.Close)
	return b
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// executeCommand runs the CLI in-process and returns its stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"MARKITUP_API_BASE_URL", "MARKITUP_API_TIMEOUT_MS",
		"MARKITUP_RETRY_MAX_ATTEMPTS", "MARKITUP_RETRY_DELAY_MS", "DATABASE_URL", "PORT", "CHROME_PATH"} {
		t.Setenv(key, "")
	}
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}
