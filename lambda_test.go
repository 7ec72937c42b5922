package canopy

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/stretchr/testify/assert"

	"github.com/arborlab/canopy/internal/pkg/canfs"
	"github.com/arborlab/canopy/internal/pkg/canlambda"
)

func TestRunningInLambda(t *testing.T) {
	res := runningInLambda()
	assert.False(t, res)

	for _, env := range []string{"LAMBDA_TASK_ROOT", "AWS_EXECUTION_ENV", "LAMBDA_RUNTIME_DIR"} {
		os.Setenv(env, "value")
		defer os.Unsetenv(env)
	}

	res = runningInLambda()
	assert.True(t, res)
}

func TestHandleRequest(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "trees.csv")
	err := ioutil.WriteFile(inputPath, []byte(testInventory), 0644)
	assert.Nil(t, err)

	cfg := testJobConfig()
	cfg.InputPath = inputPath
	cfg.OutputPath = filepath.Join(dir, "out")

	testTask := task{
		StatisticID:    0,
		FileSystemType: canfs.Local,
		Config:         cfg,
	}

	_, err = handleRequest(context.Background(), testTask)
	assert.Nil(t, err)

	result, err := readResult(&canfs.LocalFileSystem{}, cfg.OutputPath, "densest_address")
	assert.Nil(t, err)
	assert.Equal(t, [][]string{{"940 Elizabeth St", "3"}}, result.Rows)
}

func TestHandleRequestRejectsBareTask(t *testing.T) {
	_, err := handleRequest(context.Background(), task{StatisticID: 0})
	assert.NotNil(t, err)
}

type mockLambdaClient struct {
	lambdaiface.LambdaAPI
	capturedPayload []byte
}

func (m *mockLambdaClient) Invoke(input *lambda.InvokeInput) (*lambda.InvokeOutput, error) {
	m.capturedPayload = input.Payload
	return &lambda.InvokeOutput{}, nil
}

func TestLambdaExecutorShipsTask(t *testing.T) {
	mock := &mockLambdaClient{}
	executor := &lambdaExecutor{
		Client:       &canlambda.Client{Client: mock},
		functionName: "canopy_function",
	}

	cfg := testJobConfig()
	cfg.InputPath = "s3://trees/trees.csv"
	cfg.OutputPath = "s3://trees/out"

	err := executor.RunStatistic(NewJob(cfg), newTask(cfg, 2))
	assert.Nil(t, err)

	var shipped task
	err = json.Unmarshal(mock.capturedPayload, &shipped)
	assert.Nil(t, err)

	assert.Equal(t, 2, shipped.StatisticID)
	assert.Equal(t, canfs.S3, shipped.FileSystemType)
	assert.Equal(t, "s3://trees/trees.csv", shipped.Config.InputPath)
	assert.Equal(t, "Cherry Plum", shipped.Config.TargetSpeciesFlagged)
}
