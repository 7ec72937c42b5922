package canopy

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/semaphore"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/arborlab/canopy/internal/pkg/canfs"
)

// jobState tracks the orchestrator's progress through the pipeline.
// Transitions are strictly sequential; Failed is reachable from any
// non-terminal state.
type jobState int

const (
	stateInit jobState = iota
	stateConfigLoaded
	stateContextStarted
	stateIngested
	stateAggregated
	stateWritten
	stateTerminated
	stateFailed
)

func (s jobState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateConfigLoaded:
		return "ConfigLoaded"
	case stateContextStarted:
		return "ContextStarted"
	case stateIngested:
		return "Ingested"
	case stateAggregated:
		return "Aggregated"
	case stateWritten:
		return "Written"
	case stateTerminated:
		return "Terminated"
	case stateFailed:
		return "Failed"
	}
	return fmt.Sprintf("jobState(%d)", int(s))
}

// executionContext is the handle on the started compute backend: the
// filesystem holding input and output and, for remote execution, the
// deployed function. stop is safe to call on every exit path; repeated
// calls are no-ops.
type executionContext struct {
	fs       canfs.FileSystem
	executor executor
	config   *JobConfig
	stopped  bool
}

func (ctx *executionContext) stop() {
	if ctx.stopped {
		return
	}
	ctx.stopped = true

	if lx, ok := ctx.executor.(*lambdaExecutor); ok && ctx.config.Cleanup {
		if err := lx.Undeploy(); err != nil {
			log.Errorf("Error during context teardown: %s", err)
		}
	}
	log.Debug("Execution context stopped")
}

// Driver controls the execution of a statistics Job.
type Driver struct {
	job      *Job
	config   *JobConfig
	executor executor
	state    jobState
}

// NewDriver creates a Driver running the job in-process.
func NewDriver(job *Job) *Driver {
	return &Driver{
		job:      job,
		config:   job.config,
		executor: localExecutor{},
		state:    stateInit,
	}
}

func (d *Driver) transition(next jobState) {
	log.Debugf("Job state: %s -> %s", d.state, next)
	d.state = next
}

func (d *Driver) fail(err error) {
	d.transition(stateFailed)
	log.Errorf("Job failed: %s", err)
}

// startContext acquires the execution context.
func (d *Driver) startContext() (*executionContext, error) {
	fs := canfs.InferFilesystem(d.config.InputPath)

	if lx, ok := d.executor.(*lambdaExecutor); ok {
		if err := lx.Deploy(d.config); err != nil {
			return nil, err
		}
	}

	return &executionContext{
		fs:       fs,
		executor: d.executor,
		config:   d.config,
	}, nil
}

// prepareInput obtains the job's table. The local executor ingests it
// once and shares it across statistics; remote executors ingest inside
// each invocation, so the driver only verifies the source is readable.
func (d *Driver) prepareInput() error {
	if _, local := d.executor.(localExecutor); local {
		return d.job.ingest()
	}

	if _, err := d.job.fileSystem.Stat(d.config.InputPath); err != nil {
		return &IngestError{Path: d.config.InputPath, Err: err}
	}
	return nil
}

// runStatistics submits every statistic as an independent task, bounded
// by max_concurrency. Statistics share no mutable state, so no ordering
// between them is needed; the first error observed fails the job.
func (d *Driver) runStatistics() error {
	bar := pb.New(len(d.job.Statistics)).Prefix("Aggregate").Start()
	sem := semaphore.NewWeighted(int64(d.config.MaxConcurrency))
	errs := make(chan error, len(d.job.Statistics))

	var wg sync.WaitGroup
	for id := range d.job.Statistics {
		sem.Acquire(context.Background(), 1)
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer sem.Release(1)
			defer bar.Increment()
			// A panicking task must fail the job, not kill the process;
			// the driver still tears the context down on the way out.
			defer func() {
				if r := recover(); r != nil {
					errs <- fmt.Errorf("statistic task %d: abrupt termination: %v", id, r)
				}
			}()
			if err := d.executor.RunStatistic(d.job, newTask(d.config, id)); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	bar.Finish()

	close(errs)
	for err := range errs {
		return err
	}
	return nil
}

// run executes the pipeline: start the execution context, ingest, run the
// statistics, persist. The context is released on every exit path,
// including panics raised by a statistic, before the failure propagates.
func (d *Driver) run() (err error) {
	d.transition(stateConfigLoaded)

	ctx, err := d.startContext()
	if err != nil {
		d.fail(err)
		return err
	}
	defer ctx.stop()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("abrupt job termination: %v", r)
			d.fail(err)
		}
	}()

	d.job.fileSystem = ctx.fs
	d.transition(stateContextStarted)

	if err = d.prepareInput(); err != nil {
		d.fail(err)
		return err
	}
	d.transition(stateIngested)

	if err = d.runStatistics(); err != nil {
		d.fail(err)
		return err
	}
	d.transition(stateAggregated)

	// Tasks persist their own artifacts, so every artifact is on disk
	// once the statistic phase completes.
	d.transition(stateWritten)

	ctx.stop()
	d.transition(stateTerminated)
	return nil
}

var (
	configFlag   = flag.StringP("config", "c", "etl_config.json", "Path to the job configuration document")
	lambdaFlag   = flag.Bool("lambda", false, "Run statistics on AWS Lambda")
	outputFlag   = flag.StringP("out", "o", "", "Override the configured output directory (local or S3)")
	undeployFlag = flag.Bool("undeploy", false, "Delete the deployed Lambda function and exit")
)

// Main is the entry point for a canopy binary. It loads configuration,
// builds the job, runs it to completion, and exits non-zero if any
// pipeline stage fails.
func Main() {
	if runningInLambda() {
		lambda.Start(handleRequest)
		return
	}

	flag.Parse()

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Job failed: %s", err)
	}
	if *outputFlag != "" {
		cfg.OutputPath = *outputFlag
	}
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.Debugf("Loaded config: %#v", cfg)

	driver := NewDriver(NewJob(cfg))
	if *lambdaFlag {
		driver.executor = newLambdaExecutor(cfg)
	}

	if *undeployFlag {
		if err := newLambdaExecutor(cfg).Undeploy(); err != nil {
			log.Fatalf("Undeploy failed: %s", err)
		}
		return
	}

	start := time.Now()
	if err := driver.run(); err != nil {
		os.Exit(1)
	}
	log.Infof("Job execution time: %s", time.Since(start))
}
