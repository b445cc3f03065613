package token_sweeper_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Sweep.Tick)
	assert.Equal(t, ":8082", cfg.Sweep.MetricsAddr)

	t.Setenv("SWEEP_TICK", "10m")
	t.Setenv("DB_DRIVER", "sqlite")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.Tick)
	assert.Equal(t, "sqlite", cfg.DB.Driver)

	t.Setenv("DB_DRIVER", "oracle")
	_, err = Load("")
	require.Error(t, err)
}
