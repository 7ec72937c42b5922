package canopy

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfigFile(t *testing.T, settings map[string]interface{}) string {
	t.Helper()

	data, err := json.Marshal(settings)
	assert.Nil(t, err)

	path := filepath.Join(t.TempDir(), "etl_config.json")
	err = ioutil.WriteFile(path, data, 0644)
	assert.Nil(t, err)
	return path
}

func validSettings() map[string]interface{} {
	return map[string]interface{}{
		"input_path":             "trees.csv",
		"output_path":            "out",
		"target_species_flagged": "Cherry Plum",
		"maintenance_flag_value": "DPW Maintained",
		"target_species_permit":  "Banyan Fig",
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, validSettings())

	cfg, err := LoadConfig(path)
	assert.Nil(t, err)

	assert.Equal(t, "trees.csv", cfg.InputPath)
	assert.Equal(t, "out", cfg.OutputPath)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.True(t, cfg.Header)
	assert.Equal(t, 100, cfg.MaxSkippedRows)
	assert.Equal(t, "address", cfg.AddressColumn)
	assert.Equal(t, "species", cfg.SpeciesColumn)
	assert.Equal(t, "legal_status", cfg.MaintenanceColumn)
	assert.Equal(t, "permit_notes", cfg.PermitColumn)
	assert.False(t, cfg.CaseInsensitiveFlags)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "canopy_function", cfg.FunctionName)
}

func TestLoadConfigOverrides(t *testing.T) {
	settings := validSettings()
	settings["top_k"] = 3
	settings["maintenance_column"] = "care_taker"
	settings["case_insensitive_flags"] = true
	path := writeConfigFile(t, settings)

	cfg, err := LoadConfig(path)
	assert.Nil(t, err)

	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, "care_taker", cfg.MaintenanceColumn)
	assert.True(t, cfg.CaseInsensitiveFlags)
}

func TestLoadConfigMissingRequiredKeys(t *testing.T) {
	for _, key := range []string{
		"input_path",
		"output_path",
		"target_species_flagged",
		"maintenance_flag_value",
		"target_species_permit",
	} {
		settings := validSettings()
		delete(settings, key)
		path := writeConfigFile(t, settings)

		cfg, err := LoadConfig(path)
		assert.Nil(t, cfg)

		confErr, ok := err.(*ConfigError)
		assert.True(t, ok, "expected ConfigError for missing %s", key)
		assert.Equal(t, key, confErr.Key)
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	var invalidTests = []struct {
		key   string
		value interface{}
	}{
		{"top_k", 0},
		{"delimiter", ";;"},
		{"max_skipped_rows", -1},
		{"max_concurrency", 0},
	}

	for _, test := range invalidTests {
		settings := validSettings()
		settings[test.key] = test.value
		path := writeConfigFile(t, settings)

		cfg, err := LoadConfig(path)
		assert.Nil(t, cfg)

		confErr, ok := err.(*ConfigError)
		assert.True(t, ok, "expected ConfigError for %s=%v", test.key, test.value)
		assert.Equal(t, test.key, confErr.Key)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Nil(t, cfg)
	assert.NotNil(t, err)
	assert.IsType(t, &ConfigError{}, err)
}
