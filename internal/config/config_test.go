package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("NOTIFY_TRANSPORT", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, TransportLog, cfg.Notification.Transport)
	assert.Equal(t, 4*time.Hour, cfg.Dispatch.Staleness())
	assert.Equal(t, 5*time.Minute, cfg.Dispatch.Interval())
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown timezone", env: map[string]string{"APP_TIMEZONE": "Mars/Olympus"}},
		{name: "unknown transport", env: map[string]string{"NOTIFY_TRANSPORT": "pigeon"}},
		{name: "webhook without url", env: map[string]string{"NOTIFY_TRANSPORT": "webhook", "NOTIFY_WEBHOOK_URL": ""}},
		{name: "redis transport without redis", env: map[string]string{"NOTIFY_TRANSPORT": "redis", "REDIS_ADDR": ""}},
		{name: "clearing hour out of range", env: map[string]string{"CLEARING_HOUR": "24"}},
		{name: "bad redis db", env: map[string]string{"REDIS_DB": "primary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Europe/Istanbul")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Istanbul", cfg.App.Location().String())
}
