package canopy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/arborlab/canopy/internal/pkg/canfs"
	"github.com/arborlab/canopy/internal/pkg/caniam"
	"github.com/arborlab/canopy/internal/pkg/canlambda"
)

// runningInLambda infers if the program is running in AWS Lambda via
// inspection of the environment.
func runningInLambda() bool {
	expectedEnvVars := []string{"LAMBDA_TASK_ROOT", "AWS_EXECUTION_ENV", "LAMBDA_RUNTIME_DIR"}
	for _, envVar := range expectedEnvVars {
		if os.Getenv(envVar) == "" {
			return false
		}
	}
	return true
}

// handleRequest is the Lambda entry point. Each invocation rebuilds the
// job from the configuration shipped in the task, runs one statistic, and
// writes that statistic's artifact.
func handleRequest(ctx context.Context, t task) (string, error) {
	if t.Config == nil {
		return "", fmt.Errorf("task carries no configuration")
	}

	job := NewJob(t.Config)
	job.fileSystem = canfs.InitFilesystem(t.FileSystemType)

	err := job.runStatistic(t.StatisticID)
	return fmt.Sprintf("statistic %d", t.StatisticID), err
}

type lambdaExecutor struct {
	*canlambda.Client
	functionName string
}

func newLambdaExecutor(cfg *JobConfig) *lambdaExecutor {
	return &lambdaExecutor{
		Client:       canlambda.NewClient(),
		functionName: cfg.FunctionName,
	}
}

func (l *lambdaExecutor) RunStatistic(job *Job, t task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}

	_, err = l.Invoke(l.functionName, payload)
	return err
}

// Deploy provisions the execution role and uploads the current binary as
// the job's Lambda function. A preconfigured role ARN skips provisioning.
func (l *lambdaExecutor) Deploy(cfg *JobConfig) error {
	roleARN := cfg.RoleARN
	if roleARN == "" {
		var err error
		roleARN, err = caniam.NewClient().DeployPermissions(cfg.FunctionName + "_role")
		if err != nil {
			return err
		}
	}

	return l.DeployFunction(canlambda.FunctionConfig{
		Name:       cfg.FunctionName,
		RoleARN:    roleARN,
		MemorySize: int64(cfg.MaxMemory),
		Timeout:    int64(cfg.MaxTimeout),
	})
}

// Undeploy deletes the deployed function.
func (l *lambdaExecutor) Undeploy() error {
	log.Infof("Deleting function %s", l.functionName)
	return l.DeleteFunction(l.functionName)
}
