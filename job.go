package canopy

import (
	"fmt"

	"github.com/arborlab/canopy/internal/pkg/canfs"
)

// Job binds a configuration to the statistics it will run and the
// filesystem holding its input and output.
type Job struct {
	Statistics []*Statistic

	config     *JobConfig
	fileSystem canfs.FileSystem
	table      *Table
}

// NewJob builds a job running the four built-in statistics configured by
// cfg.
func NewJob(cfg *JobConfig) *Job {
	return &Job{
		Statistics: builtinStatistics(cfg),
		config:     cfg,
	}
}

// ingest loads the source table. The table is shared read-only by every
// statistic in this process.
func (j *Job) ingest() error {
	table, err := readTable(j.fileSystem, j.config.InputPath, j.config)
	if err != nil {
		return err
	}
	j.table = table
	return nil
}

// runStatistic applies one statistic to the ingested table and persists
// its artifact. It is the task body executed both in-process and inside a
// Lambda invocation; remote invocations ingest the table on demand.
func (j *Job) runStatistic(id int) error {
	if id < 0 || id >= len(j.Statistics) {
		return fmt.Errorf("no statistic with id %d", id)
	}

	if j.table == nil {
		if err := j.ingest(); err != nil {
			return err
		}
	}

	result, err := j.Statistics[id].Apply(j.table)
	if err != nil {
		return err
	}
	return writeResult(j.fileSystem, j.config.OutputPath, result)
}
