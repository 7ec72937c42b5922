package canopy

type executor interface {
	RunStatistic(job *Job, t task) error
}

type localExecutor struct{}

func (localExecutor) RunStatistic(job *Job, t task) error {
	return job.runStatistic(t.StatisticID)
}
