package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/reflow-controller/internal/profile"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	p := cfg.ProfileValue()
	assert.Equal(t, "Sn63/Pb37", p.Name)
	assert.Equal(t, profile.SnPb().Segments, p.Segments)

	sc := cfg.SessionConfig()
	assert.Equal(t, 200*time.Millisecond, sc.TickPeriod)
	assert.Equal(t, 50.0, sc.SafeStartC)
	assert.Equal(t, 4*time.Second, sc.StopSettle)
	assert.Equal(t, 5*time.Second, sc.FinishHold)
	assert.Nil(t, sc.Regimes)
	assert.True(t, cfg.ButtonEnabled())
}

func TestParseFullDocument(t *testing.T) {
	doc := `
profile:
  name: SAC305
  segments:
    - duration: 60s
      target_c: 150
    - duration: 1m30s
      target_c: 180
    - duration: 45s
      target_c: 245
control:
  tick_period: 250ms
  safe_start_c: 45
  stop_settle: 2s
  regimes:
    - max_c: 120
      kp: 80
      ki: 0.02
      kd: 10
    - kp: 250
      ki: 0.04
      kd: 300
sensor:
  min_c: 0
  max_c: 300
heater:
  pin: 5
button:
  enable: false
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	p := cfg.ProfileValue()
	assert.Equal(t, "SAC305", p.Name)
	require.Len(t, p.Segments, 3)
	assert.Equal(t, 90*time.Second, p.Segments[1].Duration)
	assert.Equal(t, 245.0, p.Segments[2].TargetC)

	sc := cfg.SessionConfig()
	assert.Equal(t, 250*time.Millisecond, sc.TickPeriod)
	assert.Equal(t, 45.0, sc.SafeStartC)
	assert.Equal(t, 2*time.Second, sc.StopSettle)
	assert.Equal(t, 5*time.Second, sc.FinishHold, "unset fields take defaults")
	assert.Equal(t, 300.0, sc.MaxValidC)
	require.Len(t, sc.Regimes, 2)
	assert.Equal(t, 120.0, sc.Regimes[0].MaxC)
	assert.True(t, math.IsInf(sc.Regimes[1].MaxC, 1))
	assert.Equal(t, 250.0, sc.Regimes[1].Gains.Kp)

	assert.Equal(t, 5, cfg.Heater.Pin)
	assert.False(t, cfg.ButtonEnabled())
}

func TestParseRejectsInvalidProfile(t *testing.T) {
	tests := map[string]string{
		"zero duration": `
profile:
  segments:
    - duration: 0s
      target_c: 100
`,
		"negative duration": `
profile:
  segments:
    - duration: 10s
      target_c: 100
    - duration: -5s
      target_c: 150
`,
		"named but empty": `
profile:
  name: empty
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.True(t, errors.Is(err, profile.ErrInvalidProfile), "got %v", err)
		})
	}
}

func TestParseRejectsBadSettings(t *testing.T) {
	tests := map[string]string{
		"unsorted regimes": `
control:
  regimes:
    - {max_c: 150, kp: 1}
    - {max_c: 100, kp: 2}
    - {kp: 3}
`,
		"open regime not last": `
control:
  regimes:
    - {kp: 1}
    - {max_c: 100, kp: 2}
`,
		"sensor range inverted": `
sensor:
  min_c: 300
  max_c: 10
`,
		"pin clash": `
heater:
  pin: 27
`,
		"bad yaml": "profile: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("control:\n  safe_start_c: 40\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.Control.SafeStartC)
	assert.Len(t, cfg.Profile.Segments, 7)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
