package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
	// LevelFatal represents the fatal severity level name.
	LevelFatal = "FATAL"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

var allowedStatus = map[string]string{
	"ok":            "ok",
	"fail":          "fail",
	"error":         "error",
	"skip":          "skip",
	"retry":         "retry",
	"rate_limited":  "rate_limited",
	"cancelled":     "cancelled",
	"duplicate":     "duplicate",
	"invalid":       "invalid",
	"unsupported":   "unsupported",
	"malformed":     "malformed",
	"empty":         "empty",
	"bad_signature": "bad_signature",
}

// allowedDelivery are the Cloud API message statuses reported in webhooks.
var allowedDelivery = map[string]string{
	"sent":      "sent",
	"delivered": "delivered",
	"read":      "read",
	"failed":    "failed",
	"deleted":   "deleted",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return "", false
	}
	if mapped, ok := allowedStatus[status]; ok {
		return mapped, true
	}
	return status, false
}

func normalizeDelivery(delivery string) (string, bool) {
	delivery = strings.ToLower(strings.TrimSpace(delivery))
	if delivery == "" {
		return "", false
	}
	val, ok := allowedDelivery[delivery]
	return val, ok
}

// normalizeState upper-cases dialogue state names so KV and JSON agree.
func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// stateKeys hold dialogue state names.
var stateKeys = []string{"state", "from"}

// phoneKeys are masked before a record is written.
var phoneKeys = []string{"sender", "to"}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"message_id",
	"sender",
	"to",
	"wamid",
	"handler",
	"method",
	"path",
	"http_code",
	"type",
	"from",
	"state",
	"input",
	"reply_kind",
	"delivery",
	"action",
	"endpoint",
	"id",
	"insurance_type",
	"duration_ms",
	"elapsed_ms",
	"text_len",
	"bytes",
	"addr",
	"db",
	"host",
	"port",
	"err",
	"error_kind",
	"err_code",
	"retryable",
	"attempt",
	"attempts",
	"backoff_ms",
}
