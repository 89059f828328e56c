package main

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/scenario"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("./testdata/ecc.json")
	assert.NilError(t, err)

	assert.Equal(t, cfg.Scenario, "./config/scenarios/camper.json")
	assert.Equal(t, cfg.Log.Level, "debug")
	assert.Equal(t, cfg.TickRate(), 250*time.Millisecond)
	assert.Equal(t, cfg.Listen, ":8080")
	assert.Equal(t, cfg.Datastreams.NATS, "./config/datastreams/nats.json")
	assert.Equal(t, cfg.Datastreams.SQL, "")
}

func TestLoadConfigRequiresScenario(t *testing.T) {
	_, err := loadConfig("./testdata/no_scenario.json")
	assert.Assert(t, errors.Is(err, ecc.ErrInvalidConfig))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ECC_LISTEN":    ":9090",
		"ECC_LOG_LEVEL": "warn",
		"ECC_TICK_MS":   "50",
	}
	cfg := Config{Listen: ":8080", TickMilliseconds: 100}
	assert.NilError(t, applyEnv(&cfg, func(k string) string { return env[k] }))

	assert.Equal(t, cfg.Listen, ":9090")
	assert.Equal(t, cfg.Log.Level, "warn")
	assert.Equal(t, cfg.TickMilliseconds, 50)

	env["ECC_TICK_MS"] = "fast"
	assert.ErrorContains(t, applyEnv(&cfg, func(k string) string { return env[k] }), "ECC_TICK_MS")
}

func TestLoadEnvMissingFile(t *testing.T) {
	assert.NilError(t, loadEnv("./testdata/missing.env"))
}

func TestBundledConfig(t *testing.T) {
	cfg, err := loadConfig("../../config/ecc.json")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Datastreams, StreamConfigs{})

	for _, path := range []string{"../../config/scenarios/camper.json", "../../config/scenarios/flashlight.json"} {
		sc, err := scenario.Load(path)
		assert.NilError(t, err, path)
		_, err = sc.Build(nil, nil)
		assert.NilError(t, err, path)
	}
}
