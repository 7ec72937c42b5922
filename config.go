package canopy

import (
	"github.com/spf13/viper"
)

// JobConfig holds every setting for a single pipeline run. It is built
// once by LoadConfig and treated as read-only afterwards; statistics take
// their filter values from here rather than from package state.
type JobConfig struct {
	InputPath  string
	OutputPath string

	TopK           int
	Delimiter      string
	Header         bool
	MaxSkippedRows int

	AddressColumn     string
	SpeciesColumn     string
	MaintenanceColumn string
	PermitColumn      string

	TargetSpeciesFlagged string
	MaintenanceFlagValue string
	TargetSpeciesPermit  string
	CaseInsensitiveFlags bool

	FunctionName   string
	RoleARN        string
	MaxConcurrency int
	MaxMemory      int
	MaxTimeout     int
	Cleanup        bool

	Verbose bool
}

func setupDefaults(v *viper.Viper) {
	defaultSettings := map[string]interface{}{
		"top_k":                  5,
		"delimiter":              ",",
		"header":                 true,
		"max_skipped_rows":       100,
		"address_column":         "address",
		"species_column":         "species",
		"maintenance_column":     "legal_status",
		"permit_column":          "permit_notes",
		"case_insensitive_flags": false,
		"function_name":          "canopy_function",
		"max_concurrency":        4,
		"max_memory":             1500,
		"max_timeout":            180,
		"cleanup":                false,
		"verbose":                false,
	}
	for key, value := range defaultSettings {
		v.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose":    "v",
		"input_path": "i",
	}
	for key, alias := range aliases {
		v.RegisterAlias(alias, key)
	}
}

// LoadConfig parses the configuration document at path into a JobConfig.
// Settings may be overridden through CANOPY_* environment variables.
// Paths and filter values have no defaults; a missing required key yields
// a ConfigError naming it.
func LoadConfig(path string) (*JobConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setupDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Key: path, Reason: err.Error()}
	}

	v.SetEnvPrefix("canopy")
	v.AutomaticEnv()

	c := &JobConfig{
		InputPath:  v.GetString("input_path"),
		OutputPath: v.GetString("output_path"),

		TopK:           v.GetInt("top_k"),
		Delimiter:      v.GetString("delimiter"),
		Header:         v.GetBool("header"),
		MaxSkippedRows: v.GetInt("max_skipped_rows"),

		AddressColumn:     v.GetString("address_column"),
		SpeciesColumn:     v.GetString("species_column"),
		MaintenanceColumn: v.GetString("maintenance_column"),
		PermitColumn:      v.GetString("permit_column"),

		TargetSpeciesFlagged: v.GetString("target_species_flagged"),
		MaintenanceFlagValue: v.GetString("maintenance_flag_value"),
		TargetSpeciesPermit:  v.GetString("target_species_permit"),
		CaseInsensitiveFlags: v.GetBool("case_insensitive_flags"),

		FunctionName:   v.GetString("function_name"),
		RoleARN:        v.GetString("lambda_role_arn"),
		MaxConcurrency: v.GetInt("max_concurrency"),
		MaxMemory:      v.GetInt("max_memory"),
		MaxTimeout:     v.GetInt("max_timeout"),
		Cleanup:        v.GetBool("cleanup"),

		Verbose: v.GetBool("verbose"),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *JobConfig) validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"input_path", c.InputPath},
		{"output_path", c.OutputPath},
		{"target_species_flagged", c.TargetSpeciesFlagged},
		{"maintenance_flag_value", c.MaintenanceFlagValue},
		{"target_species_permit", c.TargetSpeciesPermit},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Key: r.key, Reason: "required key is missing"}
		}
	}

	if c.TopK < 1 {
		return &ConfigError{Key: "top_k", Reason: "must be at least 1"}
	}
	if len([]rune(c.Delimiter)) != 1 {
		return &ConfigError{Key: "delimiter", Reason: "must be a single character"}
	}
	if c.MaxSkippedRows < 0 {
		return &ConfigError{Key: "max_skipped_rows", Reason: "must not be negative"}
	}
	if c.MaxConcurrency < 1 {
		return &ConfigError{Key: "max_concurrency", Reason: "must be at least 1"}
	}
	return nil
}
