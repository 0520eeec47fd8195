package runner

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/kwgraph/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupRunnerTest creates a non-interactive runner logging at debug level
// into its own buffer. out receives the runner's regular output.
func SetupRunnerTest(t *testing.T, settings config.Settings, app Application) (r *Runner, out, logs *SafeBuffer) {
	t.Helper()

	out, logs = &SafeBuffer{}, &SafeBuffer{}
	settings.LogLevel = "debug"
	if settings.LogFormat == "" {
		settings.LogFormat = "text"
	}
	s, err := config.New(settings)
	require.NoError(t, err)

	r, err = New(out, s, app, WithLogOutput(logs), WithInput(strings.NewReader(""), false))
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("KWGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return r, out, logs
}
