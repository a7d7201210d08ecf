package parser

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/poiesic/logsage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const javaSample = `2025-03-01 12:00:00,001 INFO [main] com.example.App: starting
2025-03-01 12:00:01,002 WARN [pool-1] com.example.Db: slow query took 1200ms
2025-03-01 12:00:02,003 ERROR [pool-1] com.example.Db: query failed
java.sql.SQLException: connection reset
	at com.example.Db.query(Db.java:42)
	at com.example.App.run(App.java:10)
Caused by: java.net.SocketException: reset by peer
	... 12 more
2025-03-01 12:00:03,004 INFO [main] com.example.App: retrying
`

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  Format
	}{
		{
			name: "json",
			lines: []string{
				`{"time":"2025-03-01T12:00:00Z","level":"info","msg":"ok"}`,
				`{"@timestamp":"2025-03-01T12:00:01Z","severity":"ERROR","message":"bad"}`,
			},
			want: FormatJSON,
		},
		{
			name: "logfmt",
			lines: []string{
				`time=2025-03-01T12:00:00Z level=info msg="server started" port=8080`,
				`time=2025-03-01T12:00:01Z level=error msg="bind failed" err="address in use"`,
			},
			want: FormatLogfmt,
		},
		{
			name:  "java",
			lines: strings.Split(strings.TrimSpace(javaSample), "\n"),
			want:  FormatJava,
		},
		{
			name: "zookeeper",
			lines: []string{
				`2025-03-01 12:00:00,123 - INFO  [main:QuorumPeerConfig@101] - Reading configuration`,
				`2025-03-01 12:00:00,456 - WARN  [main:QuorumPeer@202] - No server failure`,
			},
			want: FormatJava,
		},
		{
			name: "syslog",
			lines: []string{
				`Mar  1 12:00:00 web01 sshd[1234]: Accepted publickey for deploy`,
				`Mar  1 12:00:05 web01 kernel: Out of memory: Kill process 42`,
			},
			want: FormatSyslog,
		},
		{
			name:  "plain",
			lines: []string{"hello world", "nothing structured here", "at all"},
			want:  FormatPlain,
		},
		{
			name:  "empty sample",
			lines: nil,
			want:  FormatPlain,
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Detect(tt.lines)
			assert.Equal(t, tt.want, d.Format)
		})
	}
}

func TestDetect_BelowThresholdFallsBackToPlain(t *testing.T) {
	lines := []string{
		`{"level":"info","msg":"only one json line"}`,
		"free text",
		"more free text",
		"and more",
	}
	d := New().Detect(lines)
	assert.Equal(t, FormatPlain, d.Format)
	assert.InDelta(t, 0.25, d.Ratio, 0.001)

	d = New(WithMinSuccessRatio(0.2)).Detect(lines)
	assert.Equal(t, FormatJSON, d.Format)
}

func TestParse_JavaStackTraceCoalesced(t *testing.T) {
	doc, err := New().Parse([]byte(javaSample))
	require.NoError(t, err)
	assert.Equal(t, FormatJava, doc.Format)

	entries := doc.Collect()
	require.Len(t, entries, 4)

	assert.Equal(t, core.LevelInfo, entries[0].Level)
	assert.Equal(t, 1, entries[0].Line)
	assert.Equal(t, "com.example.App", entries[0].Logger)

	errEntry := entries[2]
	assert.Equal(t, core.LevelError, errEntry.Level)
	assert.Equal(t, 3, errEntry.Line)
	assert.Contains(t, errEntry.Raw, "java.sql.SQLException")
	assert.Contains(t, errEntry.Raw, "... 12 more")
	assert.Equal(t, 5, strings.Count(errEntry.Raw, "\n"))
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 2, 3_000_000, time.UTC), errEntry.Timestamp)

	assert.Equal(t, 9, entries[3].Line)
}

func TestParse_ContinuationCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("2025-03-01 12:00:00,000 ERROR [main] com.example.App: boom\n")
	for i := 0; i < 10; i++ {
		b.WriteString("\tat com.example.Frame.call(Frame.java:1)\n")
	}

	doc, err := New(WithMaxContinuationLines(3)).Parse([]byte(b.String()))
	require.NoError(t, err)
	entries := doc.Collect()

	require.NotEmpty(t, entries)
	assert.Equal(t, 3, strings.Count(entries[0].Raw, "\n"))
	for _, e := range entries[1:] {
		assert.Equal(t, core.LevelUnknown, e.Level)
		assert.LessOrEqual(t, strings.Count(e.Raw, "\n"), 3)
	}

	lines := 0
	for _, e := range entries {
		lines += strings.Count(e.Raw, "\n") + 1
	}
	assert.Equal(t, 11, lines, "every physical line must appear exactly once")
}

func TestParse_UnparsableLinesDegrade(t *testing.T) {
	data := `{"level":"error","msg":"first"}
{"level":"info","msg":"second"}
this line is not json
{"level":"warn","msg":"third"}
`
	doc, err := New().Parse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, FormatJSON, doc.Format)

	entries := doc.Collect()
	require.Len(t, entries, 4)
	assert.Equal(t, core.LevelError, entries[0].Level)
	assert.Equal(t, core.LevelUnknown, entries[2].Level)
	assert.False(t, entries[2].HasTimestamp())
	assert.Equal(t, "this line is not json", entries[2].Raw)
	assert.Equal(t, core.LevelWarn, entries[3].Level)
}

func TestParse_PlainPassthrough(t *testing.T) {
	data := "first line\n\n  second line\nERROR third line\n"
	doc, err := New().Parse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, FormatPlain, doc.Format)

	entries := doc.Collect()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, core.LevelUnknown, e.Level)
		assert.False(t, e.HasTimestamp())
	}
	assert.Equal(t, "  second line", entries[1].Raw)
	assert.Equal(t, 3, entries[1].Line)
}

func TestParse_Restartable(t *testing.T) {
	doc, err := New().Parse([]byte(javaSample))
	require.NoError(t, err)

	first := doc.Collect()
	second := doc.Collect()
	assert.Equal(t, first, second)

	// Early termination must not disturb later scans.
	for range doc.Entries() {
		break
	}
	assert.Equal(t, first, doc.Collect())
}

func TestParse_InputErrors(t *testing.T) {
	p := New()

	_, err := p.Parse(nil)
	assert.True(t, errors.Is(err, core.ErrEmptyInput))
	assert.True(t, errors.Is(err, core.ErrInput))

	_, err = p.Parse([]byte("   \n\n"))
	assert.True(t, errors.Is(err, core.ErrEmptyInput))

	_, err = p.Parse([]byte{0x00, 0x01, 0x02, 'a'})
	assert.True(t, errors.Is(err, core.ErrNotText))
}

func TestParse_LatinOne(t *testing.T) {
	line := "2025-03-01 12:00:00,123 ERROR [main] db.Pool: \xc9chec de connexion \xe0 la base, r\xe9essai\n"
	doc, err := New().Parse([]byte(strings.Repeat(line, 50)))
	require.NoError(t, err)
	assert.Equal(t, FormatJava, doc.Format)

	entries := doc.Collect()
	require.Len(t, entries, 50)
	assert.Equal(t, core.LevelError, entries[0].Level)
	assert.Equal(t, "db.Pool", entries[0].Logger)
	assert.Equal(t, "\uFFFDchec de connexion \uFFFD la base, r\uFFFDessai", entries[0].Message)
	assert.True(t, utf8.ValidString(entries[0].Raw))
}

// checkParse asserts the parser's contract for arbitrary input: no panic,
// only input errors, and valid UTF-8 entries with positive line numbers.
func checkParse(t *testing.T, p *Parser, data []byte) {
	t.Helper()
	doc, err := p.Parse(data)
	if err != nil {
		require.ErrorIs(t, err, core.ErrInput)
		return
	}
	for _, e := range doc.Collect() {
		assert.Positive(t, e.Line)
		assert.True(t, utf8.ValidString(e.Raw), "entry %d is not valid UTF-8", e.Line)
	}
}

func TestParse_NeverPanicsOnArbitraryBytes(t *testing.T) {
	const (
		punct = "\n\r\t {}[]\":=,#"
		words = "abcERRORWARNINFO0123456789"
	)
	rng := rand.New(rand.NewSource(42))
	p := New()

	for i := 0; i < 300; i++ {
		buf := make([]byte, rng.Intn(2048)+1)
		for j := range buf {
			switch r := rng.Intn(10); {
			case r < 5:
				buf[j] = byte(rng.Intn(256))
			case r < 7:
				buf[j] = punct[rng.Intn(len(punct))]
			default:
				buf[j] = words[rng.Intn(len(words))]
			}
		}
		// Most buffers carry a NUL; strip them from half so the parsing path runs too.
		if i%2 == 0 {
			buf = bytes.ReplaceAll(buf, []byte{0}, []byte{' '})
		}
		checkParse(t, p, buf)
	}

	t.Run("long line", func(t *testing.T) {
		checkParse(t, p, append(bytes.Repeat([]byte("x\xff"), 1<<20), '\n'))
	})
	t.Run("lone carriage returns", func(t *testing.T) {
		checkParse(t, p, []byte("\r\r\rERROR boom\r\n\r"))
	})
}

func FuzzParse(f *testing.F) {
	f.Add([]byte(javaSample))
	f.Add([]byte(`{"level":"error","msg":"boom"}` + "\n"))
	f.Add([]byte("time=2025-03-01T12:00:00Z level=warn msg=slow component=api\n"))
	f.Add([]byte("Mar  1 12:00:00 host app[12]: failed\n"))
	f.Add([]byte("\x00\x01\x02"))
	f.Add([]byte("\r"))
	f.Add([]byte("\xc9chec \xe0 la base\n\tat x.y(Z.java:1)\n"))

	p := New()
	f.Fuzz(func(t *testing.T, data []byte) {
		checkParse(t, p, data)
	})
}

func TestParseAs(t *testing.T) {
	p := New()
	doc, err := p.ParseAs([]byte(javaSample), FormatPlain)
	require.NoError(t, err)
	assert.Len(t, doc.Collect(), 9)

	_, err = p.ParseAs([]byte(javaSample), Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestVariants(t *testing.T) {
	t.Run("json numeric epoch and level", func(t *testing.T) {
		e, ok := jsonVariant{}.TryParse(`{"ts":1740830400000,"level":50,"msg":"boom","name":"api"}`)
		require.True(t, ok)
		assert.Equal(t, core.LevelError, e.Level)
		assert.Equal(t, "boom", e.Message)
		assert.Equal(t, "api", e.Logger)
		assert.Equal(t, int64(1740830400), e.Timestamp.Unix())
	})

	t.Run("json at-timestamp key", func(t *testing.T) {
		e, ok := jsonVariant{}.TryParse(`{"@timestamp":"2025-03-01T12:00:00.5Z","log_level":"WARNING","log":"x"}`)
		require.True(t, ok)
		assert.Equal(t, core.LevelWarn, e.Level)
		assert.Equal(t, 500*time.Millisecond, time.Duration(e.Timestamp.Nanosecond()))
	})

	t.Run("json rejects arrays and garbage", func(t *testing.T) {
		_, ok := jsonVariant{}.TryParse(`[1,2,3]`)
		assert.False(t, ok)
		_, ok = jsonVariant{}.TryParse(`{"broken":`)
		assert.False(t, ok)
	})

	t.Run("logfmt quoted values", func(t *testing.T) {
		e, ok := logfmtVariant{}.TryParse(`ts=2025-03-01T12:00:00Z lvl=warn msg="disk \"data\" almost full" component=storage`)
		require.True(t, ok)
		assert.Equal(t, core.LevelWarn, e.Level)
		assert.Equal(t, `disk "data" almost full`, e.Message)
		assert.Equal(t, "storage", e.Logger)
		assert.True(t, e.HasTimestamp())
	})

	t.Run("logfmt needs three pairs", func(t *testing.T) {
		_, ok := logfmtVariant{}.TryParse(`a=1 b=2`)
		assert.False(t, ok)
	})

	t.Run("syslog level from message", func(t *testing.T) {
		e, ok := syslogVariant{year: 2025}.TryParse(`Mar  1 12:00:00 web01 app[99]: ERROR upstream timed out`)
		require.True(t, ok)
		assert.Equal(t, core.LevelError, e.Level)
		assert.Equal(t, "app", e.Logger)
		assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), e.Timestamp)
	})

	t.Run("java framework form", func(t *testing.T) {
		e, ok := javaVariant{}.TryParse(`2025-03-01T12:00:00Z [ERROR] payment declined`)
		require.True(t, ok)
		assert.Equal(t, core.LevelError, e.Level)
		assert.Equal(t, "payment declined", e.Message)
	})
}

func TestComputeStats(t *testing.T) {
	data := `2025-03-01 12:00:00,000 INFO [main] com.example.App: request_id=abc123 start
2025-03-01 12:00:01,000 ERROR [main] com.example.Db: request_id=abc123 failed
2025-03-01 12:00:02,000 WARN [main] com.example.Db: txn_id=tx-9 slow
2025-03-01 12:00:03,000 DEBUG [main] com.example.App: done
`
	doc, err := New().Parse([]byte(data))
	require.NoError(t, err)
	entries := doc.Collect()

	stats := ComputeStats(doc.Format, entries)
	assert.Equal(t, FormatJava, stats.Format)
	assert.Equal(t, 4, stats.TotalEntries)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Equal(t, 1, stats.Levels["DEBUG"])
	assert.Equal(t, []string{"com.example.App", "com.example.Db"}, stats.Loggers)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), stats.FirstTimestamp)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 3, 0, time.UTC), stats.LastTimestamp)
	assert.Equal(t, 2, stats.TraceIDs)

	ids := ExtractTraceIDs(entries)
	assert.Equal(t, []int{0, 1}, ids["abc123"])
	assert.Equal(t, []int{2}, ids["tx-9"])
}
