package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"booth-outfit-search/internal/domain"
)

// TestNew_FileOutput tests JSON output to a file honoring the level.
func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "warn", Format: "json", Output: path}, SentryConfig{})
	require.NoError(t, err)

	log.Info("hidden")
	log.With(zap.String("avatar", "桔梗")).Warn("cache failure")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"message":"cache failure"`)
	assert.Contains(t, string(data), `"avatar":"桔梗"`)
}

// TestNew_BadLevelFallsBack tests that an unknown level means info.
func TestNew_BadLevelFallsBack(t *testing.T) {
	log, err := New(Config{Level: "loud", Output: "stderr"}, SentryConfig{})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}

// TestFieldsToMap tests conversion of zap fields to Sentry extras.
func TestFieldsToMap(t *testing.T) {
	m := fieldsToMap([]zap.Field{
		zap.String("avatar", "桔梗"),
		zap.Int("attempt", 2),
		zap.Float64("score", 64.5),
		zap.Bool("cached", true),
		zap.Duration("took", 1500*time.Millisecond),
		zap.Error(errors.New("status 503")),
	})

	assert.Equal(t, "桔梗", m["avatar"])
	assert.Equal(t, int64(2), m["attempt"])
	assert.Equal(t, 64.5, m["score"])
	assert.Equal(t, true, m["cached"])
	assert.Equal(t, "1.5s", m["took"])
	assert.Equal(t, "status 503", m["error"])
}

// TestFetchErrorFields tests the fields logged for marketplace failures.
func TestFetchErrorFields(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want map[string]any
		miss []string
	}{
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: map[string]any{"error": "boom"},
			miss: []string{KeyFetchErrorKind, KeyUpstreamStatus},
		},
		{
			name: "wrapped status error",
			err: fmt.Errorf("fetching search page: %w", &domain.FetchError{
				Kind:       domain.FetchErrorStatus,
				URL:        "/ko/search/桔梗",
				StatusCode: 503,
			}),
			want: map[string]any{
				KeyFetchErrorKind: "status",
				KeyUpstreamStatus: int64(503),
				KeyUpstreamURL:    "/ko/search/桔梗",
			},
			miss: []string{KeyRetryAfter},
		},
		{
			name: "rate limited",
			err: &domain.FetchError{
				Kind:       domain.FetchErrorRateLimited,
				StatusCode: 429,
				RetryAfter: 90 * time.Second,
			},
			want: map[string]any{
				KeyFetchErrorKind: "rate_limited",
				KeyUpstreamStatus: int64(429),
				KeyRetryAfter:     "1m30s",
			},
			miss: []string{KeyUpstreamURL},
		},
		{
			name: "breaker open",
			err:  &domain.FetchError{Kind: domain.FetchErrorBreakerOpen},
			want: map[string]any{KeyFetchErrorKind: "breaker_open"},
			miss: []string{KeyUpstreamStatus, KeyUpstreamURL, KeyRetryAfter},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fieldsToMap(FetchErrorFields(tt.err))

			assert.Equal(t, tt.err.Error(), m["error"])
			for k, v := range tt.want {
				assert.Equal(t, v, m[k], k)
			}
			for _, k := range tt.miss {
				assert.NotContains(t, m, k)
			}
		})
	}
}

// TestBuildEvent tests level mapping and tag promotion for Sentry events.
func TestBuildEvent(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.ErrorLevel, Message: "search failed upstream", LoggerName: "api"}
	err := &domain.FetchError{Kind: domain.FetchErrorStatus, StatusCode: 502}

	event := buildEvent(entry, append(FetchErrorFields(err), zap.String("avatar", "桔梗")))

	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "search failed upstream", event.Message)
	assert.Equal(t, "api", event.Logger)
	assert.Equal(t, "status", event.Tags[KeyFetchErrorKind])
	assert.Equal(t, "502", event.Tags[KeyUpstreamStatus])
	assert.NotContains(t, event.Tags, "avatar")
	assert.Equal(t, "桔梗", event.Extra["avatar"])
}

// TestSentryLevel tests zap to Sentry level mapping.
func TestSentryLevel(t *testing.T) {
	assert.Equal(t, sentry.LevelDebug, sentryLevel(zapcore.DebugLevel))
	assert.Equal(t, sentry.LevelInfo, sentryLevel(zapcore.InfoLevel))
	assert.Equal(t, sentry.LevelWarning, sentryLevel(zapcore.WarnLevel))
	assert.Equal(t, sentry.LevelError, sentryLevel(zapcore.ErrorLevel))
	assert.Equal(t, sentry.LevelFatal, sentryLevel(zapcore.PanicLevel))
	assert.Equal(t, sentry.LevelFatal, sentryLevel(zapcore.FatalLevel))
}

// TestSentryCore_CheckAndWith tests that only errors reach Sentry and With does not alias fields.
func TestSentryCore_CheckAndWith(t *testing.T) {
	core := newSentryCore(zapcore.InfoLevel)

	assert.Nil(t, core.Check(zapcore.Entry{Level: zapcore.WarnLevel}, nil))
	assert.NotNil(t, core.Check(zapcore.Entry{Level: zapcore.ErrorLevel}, nil))

	parent := core.With([]zapcore.Field{zap.String("a", "1")}).(*sentryCore)
	left := parent.With([]zapcore.Field{zap.String("b", "2")}).(*sentryCore)
	right := parent.With([]zapcore.Field{zap.String("c", "3")}).(*sentryCore)

	assert.Len(t, parent.fields, 1)
	assert.Equal(t, "b", left.fields[1].Key)
	assert.Equal(t, "c", right.fields[1].Key)
}

// TestNew_BadOutput tests that an unwritable log path is reported.
func TestNew_BadOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")}, SentryConfig{})
	assert.Error(t, err)
}
