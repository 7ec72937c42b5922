package canopy

import (
	"github.com/arborlab/canopy/internal/pkg/canfs"
)

// task is a self-contained unit of work: one statistic run against one
// input location. Tasks are JSON-encoded when shipped to remote executors,
// so they carry everything an invocation needs to rebuild its filesystem,
// job, and statistic without any process state.
type task struct {
	StatisticID    int
	FileSystemType canfs.FileSystemType
	Config         *JobConfig
}

func newTask(cfg *JobConfig, statisticID int) task {
	return task{
		StatisticID:    statisticID,
		FileSystemType: canfs.TypeOf(cfg.InputPath),
		Config:         cfg,
	}
}
