package canopy

import "fmt"

// ConfigError indicates a missing or invalid configuration key.
// The job never starts when configuration is bad.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// IngestError indicates that the source table could not be read, or that
// the number of malformed rows exceeded the configured threshold.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// AggregationError indicates an unexpected shape in a transform, such as a
// filter or group column missing from the table schema. It names the
// statistic that failed.
type AggregationError struct {
	Statistic string
	Err       error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("statistic %s: %s", e.Statistic, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// PersistError indicates that a result artifact could not be written.
type PersistError struct {
	Artifact string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %s", e.Artifact, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
