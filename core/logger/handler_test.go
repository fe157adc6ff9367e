package logger

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func newTestHandler(format logFormat) (*bytes.Buffer, *asyncWriter, *slog.Logger) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return buf, aw, slog.New(handler)
}

func flushLine(t *testing.T, buf *bytes.Buffer, aw *asyncWriter) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf, aw, base := newTestHandler(formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithMessageMeta(ctx, "wamid.ABC", "5218441234567")

	LogEvent(ctx, base.With("component", "inbound"), slog.LevelInfo, "message.received",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	line := flushLine(t, buf, aw)

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=inbound", "event=message.received", "status=ok", "rid=rid-123", "message_id=wamid.ABC", "sender=*********4567"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf, aw, base := newTestHandler(formatJSON)
	ctx := WithRID(Background(), "rid-json")

	LogEvent(ctx, base.With("component", "sender"), slog.LevelError, "send.fail",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "TEST_FAIL"),
	)
	line := flushLine(t, buf, aw)

	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"sender"`, `"event":"send.fail"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerMasksPhoneAttrs(t *testing.T) {
	buf, aw, base := newTestHandler(formatKV)

	LogEvent(context.Background(), base, slog.LevelInfo, "send.success",
		slog.String("to", "5218441234567"),
	)
	line := flushLine(t, buf, aw)

	if strings.Contains(line, "5218441234567") {
		t.Fatalf("phone leaked into %s", line)
	}
	if !strings.Contains(line, "to=*********4567") {
		t.Fatalf("expected masked destination, got %s", line)
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf, aw, base := newTestHandler(formatKV)
	rawRID := "7f9c2ba4-e88f-4e0a-9a3c-2f0a1b2c3d4e"

	LogEvent(WithRID(Background(), rawRID), base, slog.LevelInfo, "rid.test", slog.String("status", "ok"))
	line := flushLine(t, buf, aw)

	if !strings.Contains(line, "rid=7f9c2ba4") {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf, aw, base := newTestHandler(formatJSON)
	rawRID := "7f9c2ba4-e88f-4e0a-9a3c-2f0a1b2c3d4e"

	LogEvent(WithRID(Background(), rawRID), base, slog.LevelInfo, "rid.test", slog.String("status", "ok"))
	line := flushLine(t, buf, aw)

	if !strings.Contains(line, `"rid":"7f9c2ba4"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano to be present in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	cases := map[string]string{
		"duration":      "duration_ms",
		"send_duration": "send_duration_ms",
		"backoff":       "backoff_ms",
		"elapsed_ms":    "elapsed_ms",
	}
	for in, want := range cases {
		if got := durationKey(in); got != want {
			t.Fatalf("durationKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompactRID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"plain", "plain"},
		{"7f9c2ba4-e88f-4e0a-9a3c-2f0a1b2c3d4e", "7f9c2ba4"},
		{"wamid.HBgLNTIxODQ0MTIzNDU2NxUCABIYFjNFQjA", "CABIYFjNFQjA"},
		{"wamid.SHORT", "SHORT"},
	}
	for _, c := range cases {
		if got := CompactRID(c.in); got != c.want {
			t.Fatalf("CompactRID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"1234":          "1234",
		"12345":         "*2345",
		"5218441234567": "*********4567",
	}
	for in, want := range cases {
		if got := MaskPhone(in); got != want {
			t.Fatalf("MaskPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("hola\x00 mundo\u200b", 6); got != "hola m" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("SanitizeLimit with zero max = %q", got)
	}
}

func TestStructuredHandlerNormalizesDeliveryAndState(t *testing.T) {
	buf, aw, base := newTestHandler(formatKV)

	LogEvent(context.Background(), base, slog.LevelInfo, "delivery.status",
		slog.String("delivery", "Delivered"),
		slog.String("state", "waiting_name"),
	)
	line := flushLine(t, buf, aw)

	if !strings.Contains(line, "delivery=delivered") {
		t.Fatalf("expected normalized delivery, got %s", line)
	}
	if !strings.Contains(line, "state=WAITING_NAME") {
		t.Fatalf("expected upper-cased state, got %s", line)
	}
}

func TestStructuredHandlerDropsUnknownDelivery(t *testing.T) {
	buf, aw, base := newTestHandler(formatKV)

	LogEvent(context.Background(), base, slog.LevelInfo, "delivery.status", slog.String("delivery", "teleported"))
	line := flushLine(t, buf, aw)

	if strings.Contains(line, "delivery=") {
		t.Fatalf("unknown delivery should be dropped, got %s", line)
	}
}
