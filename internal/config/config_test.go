package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.InDelta(t, 25.581587, cfg.CampusLat, 1e-9)
	assert.False(t, cfg.GeofenceEnabled())
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CAMPUS_EMAIL_DOMAIN", "@NITP.ac.in")
	t.Setenv("CAMPUS_RADIUS_METERS", "100")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "nitp.ac.in", cfg.CampusEmailDomain)
	assert.True(t, cfg.GeofenceEnabled())
	assert.True(t, cfg.MailEnabled())
	assert.Same(t, cfg, Get())
}
