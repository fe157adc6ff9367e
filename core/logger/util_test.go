package logger

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 5)
	allowed := 0
	for i := 0; i < 50; i++ {
		if s.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	s.Set(7, 3)
	for i := 0; i < 6; i++ {
		assert.True(t, s.Allow(), "numerator is capped at denominator")
	}
}

func TestParseRatioSpec(t *testing.T) {
	tests := []struct {
		in       string
		num, den int
	}{
		{"1/50", 1, 50},
		{" 2 / 10 ", 2, 10},
		{"20", 1, 20},
		{"0", 0, 0},
		{"", 0, 0},
		{"a/b", 0, 0},
		{"off", 0, 0},
	}
	for _, tt := range tests {
		num, den := parseRatioSpec(tt.in)
		assert.Equal(t, tt.num, num, tt.in)
		assert.Equal(t, tt.den, den, tt.in)
	}
}

func TestSummarizeStrings(t *testing.T) {
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, cut)

	s, cut = SummarizeStrings([]string{"a"}, 2)
	assert.Equal(t, "a", s)
	assert.False(t, cut)
}

func TestStatusAndRoundMS(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "error", Status(errors.New("x")))
	assert.Equal(t, 2*time.Millisecond, RoundMS(1600*time.Microsecond))
	assert.Zero(t, RoundMS(-time.Second))
}

func TestAsyncWriterFlushAndClose(t *testing.T) {
	var a, b bytes.Buffer
	w := newAsyncWriter([]io.Writer{&a, &b}, 0)

	require.NoError(t, w.Write([]byte("one\n")))
	require.NoError(t, w.Write([]byte("two\n")))
	require.NoError(t, w.Flush())
	assert.Equal(t, "one\ntwo\n", a.String())
	assert.Equal(t, a.String(), b.String())

	require.NoError(t, w.Write([]byte("three\n")))
	require.NoError(t, w.Close())
	assert.Equal(t, "one\ntwo\nthree\n", a.String())
	assert.NoError(t, w.Flush(), "flush after close does not block")
	assert.Zero(t, w.Dropped())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterReportsSinkError(t *testing.T) {
	w := newAsyncWriter([]io.Writer{failingWriter{}}, 1)
	require.NoError(t, w.Write([]byte("line that exceeds the buffer\n")))
	assert.Error(t, w.Close())
}
