package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db)

	window := time.Minute

	t.Run("under the limit", func(t *testing.T) {
		mock.ExpectEval(rateScript, []string{"ratelimit:user:u1"}, window.Milliseconds()).SetVal(int64(3))

		ok, err := limiter.Allow(context.Background(), "ratelimit:user:u1", 10, window)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("at the limit", func(t *testing.T) {
		mock.ExpectEval(rateScript, []string{"ratelimit:user:u1"}, window.Milliseconds()).SetVal(int64(10))

		ok, err := limiter.Allow(context.Background(), "ratelimit:user:u1", 10, window)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("over the limit", func(t *testing.T) {
		mock.ExpectEval(rateScript, []string{"ratelimit:user:u1"}, window.Milliseconds()).SetVal(int64(11))

		ok, err := limiter.Allow(context.Background(), "ratelimit:user:u1", 10, window)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSuspiciousUserAgent(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"Mozilla/5.0 (X11; Linux x86_64)", false},
		{"Googlebot/2.1 (+http://www.google.com/bot.html)", true},
		{"my-scraper/0.1", true},
		{"SpiderMonkey", true},
		{"curl/8.0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ua, func(t *testing.T) {
			assert.Equal(t, tt.want, isSuspiciousUserAgent(tt.ua))
		})
	}
}
