package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/poiesic/logsage"
	"github.com/poiesic/logsage/ai/mock"
	"github.com/poiesic/logsage/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// isolate runs the test in an empty directory with no config file and no
// configuration in the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, key := range []string{
		"LOGSAGE_CONFIG", "DATA_DIR", "VECTOR_STORE", "QDRANT_URL", "QDRANT_API_KEY", "COLLECTION_NAME",
		"INFERENCE_PROVIDER", "EMBEDDING_API", "EMBEDDING_BASE_URL", "EMBEDDING_API_KEY",
		"OLLAMA_BASE_URL", "OLLAMA_MODEL", "OLLAMA_EMBED_MODEL", "GROQ_API_KEY", "GROQ_MODEL",
		"GROQ_BASE_URL", "MAX_CHUNKS", "EMBEDDING_CONCURRENCY", "MAX_FILE_SIZE_MB",
		"WARN_FILE_SIZE_MB", "TOP_K",
	} {
		t.Setenv(key, "")
	}
	return dir
}

// useMockService makes commands build their Service on a mock provider.
func useMockService(t *testing.T, responses ...string) *mock.MockReasoner {
	t.Helper()
	reasoner := mock.NewMockReasoner(responses...)
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), reasoner)
	previous := openService
	openService = func(ctx context.Context, cfg *config.Config) (*logsage.Service, error) {
		return logsage.New(ctx, cfg, logsage.WithProvider(provider))
	}
	t.Cleanup(func() { openService = previous })
	return reasoner
}

// testApp returns the real app with captured output.
func testApp(stdin string) (*cli.App, *bytes.Buffer, *bytes.Buffer) {
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = bytes.NewBufferString(stdin)
	return app, &out, &errOut
}

func writeIncidentLog(t *testing.T, dir, name string) string {
	t.Helper()
	var b bytes.Buffer
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%s INFO [http-1] com.example.Api: handled request %d in 12ms\n",
			ts.Format("2006-01-02 15:04:05,000"), i)
		ts = ts.Add(time.Second)
	}
	ts = ts.Add(5 * time.Minute)
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "%s ERROR [pool-1] com.example.Db: connection refused to db:5432\n",
			ts.Format("2006-01-02 15:04:05,000"))
		ts = ts.Add(100 * time.Millisecond)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag[T cli.Flag](flags []cli.Flag, name string) T {
	var zero T
	for _, flag := range flags {
		if f, ok := flag.(T); ok {
			for _, n := range flag.Names() {
				if n == name {
					return f
				}
			}
		}
	}
	return zero
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("log-level defaults to warn with alias -l", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](app.Flags, "log-level")
		require.NotNil(t, f)
		assert.Equal(t, "warn", f.Value)
		assert.Equal(t, []string{"l"}, f.Aliases)
	})

	t.Run("config reads LOGSAGE_CONFIG", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](app.Flags, "config")
		require.NotNil(t, f)
		assert.Equal(t, []string{"LOGSAGE_CONFIG"}, f.EnvVars)
		assert.Empty(t, f.Value)
	})

	t.Run("ingest parallel defaults to 2", func(t *testing.T) {
		f := findFlag[*cli.IntFlag](findCommand(t, app, "ingest").Flags, "parallel")
		require.NotNil(t, f)
		assert.Equal(t, 2, f.Value)
	})

	t.Run("ask top-k defaults to the configured value", func(t *testing.T) {
		f := findFlag[*cli.IntFlag](findCommand(t, app, "ask").Flags, "top-k")
		require.NotNil(t, f)
		assert.Zero(t, f.Value)
	})

	t.Run("output defaults to text", func(t *testing.T) {
		for _, name := range []string{"ingest", "ask", "stats"} {
			f := findFlag[*cli.StringFlag](findCommand(t, app, name).Flags, "output")
			require.NotNil(t, f, name)
			assert.Equal(t, "text", f.Value, name)
		}
	})
}

func TestArgumentValidation(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ingest without files", []string{"logsage", "ingest"}, "at least one FILE"},
		{"ingest with zero parallel", []string{"logsage", "ingest", "--parallel", "0", "a.log"}, "parallel must be greater than 0"},
		{"ask without question", []string{"logsage", "ask"}, "QUESTION is required"},
		{"ask with bad output", []string{"logsage", "ask", "-o", "xml", "why?"}, "invalid output format"},
		{"stats without file", []string{"logsage", "stats"}, "exactly one FILE"},
		{"invalid store", []string{"logsage", "--store", "sqlite", "config", "show"}, "failed to load configuration"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _, _ := testApp("")
			err := app.Run(tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestIngestCommand(t *testing.T) {
	dir := isolate(t)
	useMockService(t)
	good := writeIncidentLog(t, dir, "app.log")

	t.Run("text summary", func(t *testing.T) {
		app, out, errOut := testApp("")
		err := app.Run([]string{"logsage", "--store", "memory", "ingest", good})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "✓ "+good)
		assert.Contains(t, out.String(), "(java)")
		assert.Contains(t, out.String(), "3 errors, 0 warnings")
		assert.Contains(t, errOut.String(), "app.log: ")
	})

	t.Run("a failing file does not stop the others", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.log")
		app, out, _ := testApp("")
		err := app.Run([]string{"logsage", "--store", "memory", "ingest", "-q", "-o", "json", good, missing})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ingest failed for 1 of 2 files")
		assert.Contains(t, out.String(), `"path": "`+missing+`"`)
		assert.Contains(t, out.String(), `"chunks_created"`)
	})
}

func TestChatCommand(t *testing.T) {
	dir := isolate(t)
	reasoner := useMockService(t,
		`{"summary":"The database refused connections.","root_cause":"db:5432 was down","confidence":"high","next_steps":["Check the database host"]}`)
	path := writeIncidentLog(t, dir, "app.log")

	app, out, errOut := testApp("why did requests fail?\n/quit\n")
	err := app.Run([]string{"logsage", "--store", "memory", "chat", "--ingest", path, "-k", "3"})
	require.NoError(t, err)

	assert.Contains(t, errOut.String(), "✓ "+path)
	assert.Contains(t, out.String(), "The database refused connections.")
	assert.Contains(t, out.String(), "db:5432 was down")
	assert.Contains(t, out.String(), "1. Check the database host")
	assert.Contains(t, out.String(), "app.log#")
	assert.Equal(t, 1, reasoner.CallCount())
}

func TestStatsCommand(t *testing.T) {
	dir := isolate(t)
	path := writeIncidentLog(t, dir, "app.log")

	t.Run("text", func(t *testing.T) {
		app, out, _ := testApp("")
		require.NoError(t, app.Run([]string{"logsage", "stats", path}))
		assert.Contains(t, out.String(), "app.log")
		assert.Contains(t, out.String(), "java")
		assert.Contains(t, out.String(), "ERROR=3")
		assert.Contains(t, out.String(), "INFO=40")
		assert.Contains(t, out.String(), "com.example.Api, com.example.Db")
	})

	t.Run("yaml", func(t *testing.T) {
		app, out, _ := testApp("")
		require.NoError(t, app.Run([]string{"logsage", "stats", "-o", "yaml", path}))
		assert.Contains(t, out.String(), "format: java")
		assert.Contains(t, out.String(), "total_entries: 43")
		assert.Contains(t, out.String(), "error_count: 3")
	})

	t.Run("unknown forced format", func(t *testing.T) {
		app, _, _ := testApp("")
		err := app.Run([]string{"logsage", "stats", "-f", "csv", path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown log format")
	})
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)

	t.Run("show masks secrets", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "gsk-secret")
		app, out, _ := testApp("")
		require.NoError(t, app.Run([]string{"logsage", "config", "show"}))
		assert.Contains(t, out.String(), "vector_store: badger")
		assert.Contains(t, out.String(), "********")
		assert.NotContains(t, out.String(), "gsk-secret")
	})

	t.Run("init refuses to overwrite without force", func(t *testing.T) {
		path := filepath.Join(dir, "conf", "logsage.yaml")

		app, out, _ := testApp("")
		require.NoError(t, app.Run([]string{"logsage", "config", "init", path}))
		assert.Contains(t, out.String(), "Wrote "+path)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.Default().Ingest, cfg.Ingest)

		app, _, _ = testApp("")
		err = app.Run([]string{"logsage", "config", "init", path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		app, _, _ = testApp("")
		require.NoError(t, app.Run([]string{"logsage", "config", "init", "--force", path}))
	})
}

func TestParseOutput(t *testing.T) {
	for in, want := range map[string]outputFormat{"": outputText, "text": outputText, "JSON": outputJSON, "yaml": outputYAML} {
		got, err := parseOutput(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseOutput("xml")
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
						assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-1))
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app, _, _ := testApp("")
		err := app.Run([]string{"logsage", "--log-level", "verbose", "config", "show"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid log level "verbose"`)
	})
}

func TestMain(m *testing.M) {
	color.NoColor = true
	code := m.Run()
	os.Exit(code)
}
