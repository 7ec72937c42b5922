// Package canlambda manages the AWS Lambda function that runs canopy
// statistic tasks: building the deployment package, keeping the deployed
// function up to date, and invoking it.
package canlambda

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	log "github.com/sirupsen/logrus"
)

// FunctionConfig describes the function a job deploys.
type FunctionConfig struct {
	Name       string
	RoleARN    string
	MemorySize int64
	Timeout    int64
}

// Client wraps the Lambda API for function deployment and invocation.
type Client struct {
	Client lambdaiface.LambdaAPI
}

// NewClient initializes a new Client
func NewClient() *Client {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	return &Client{
		Client: lambda.New(sess),
	}
}

func functionNeedsUpdate(functionCode []byte, cfg *lambda.FunctionConfiguration) bool {
	codeHash := sha256.New()
	codeHash.Write(functionCode)
	codeHashDigest := base64.StdEncoding.EncodeToString(codeHash.Sum(nil))
	return codeHashDigest != *cfg.CodeSha256
}

// DeployFunction creates or updates the job's function, recompiling the
// current binary for the Lambda runtime. An unchanged code hash skips the
// upload.
func (l *Client) DeployFunction(cfg FunctionConfig) error {
	functionCode, err := l.buildPackage()
	if err != nil {
		return err
	}

	exists, err := l.getFunction(cfg.Name)
	if exists != nil && err == nil {
		if functionNeedsUpdate(functionCode, exists.Configuration) {
			log.Debugf("Updating Lambda function '%s'", cfg.Name)
			return l.updateFunction(cfg.Name, functionCode)
		}
		log.Debugf("Function '%s' is already up-to-date", cfg.Name)
		return nil
	}

	log.Debugf("Creating Lambda function '%s'", cfg.Name)
	return l.createFunction(cfg, functionCode)
}

// DeleteFunction tears down the deployed function.
func (l *Client) DeleteFunction(functionName string) error {
	deleteInput := &lambda.DeleteFunctionInput{
		FunctionName: aws.String(functionName),
	}

	_, err := l.Client.DeleteFunction(deleteInput)
	return err
}

func crossCompile(binName string) (string, error) {
	tmpDir, err := ioutil.TempDir("", "")
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(tmpDir, binName)

	args := []string{
		"build",
		"-o", outputPath,
		"-ldflags", "-s -w",
		".",
	}
	cmd := exec.Command("go", args...)

	cmd.Env = append(os.Environ(), "GOOS=linux")

	combinedOut, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s\n%s", err, combinedOut)
	}

	return outputPath, nil
}

func (l *Client) buildPackage() ([]byte, error) {
	log.Debug("Compiling job binary for Lambda")
	binFile, err := crossCompile("canopy_artifact")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(filepath.Dir(binFile))

	binReader, err := os.Open(binFile)
	if err != nil {
		return nil, err
	}

	zipBuf := new(bytes.Buffer)
	archive := zip.NewWriter(zipBuf)
	header := &zip.FileHeader{
		Name:           "main",
		ExternalAttrs:  (0777 << 16), // File permissions
		CreatorVersion: (3 << 8),     // Magic number indicating a Unix creator
	}

	writer, err := archive.CreateHeader(header)
	if err != nil {
		return nil, err
	}

	_, err = io.Copy(writer, binReader)
	if err != nil {
		return nil, err
	}

	binReader.Close()
	archive.Close()

	return zipBuf.Bytes(), nil
}

func (l *Client) updateFunction(functionName string, code []byte) error {
	updateArgs := &lambda.UpdateFunctionCodeInput{
		ZipFile:      code,
		FunctionName: aws.String(functionName),
	}

	_, err := l.Client.UpdateFunctionCode(updateArgs)
	return err
}

func (l *Client) createFunction(cfg FunctionConfig, code []byte) error {
	funcCode := &lambda.FunctionCode{
		ZipFile: code,
	}

	createArgs := &lambda.CreateFunctionInput{
		Code:         funcCode,
		FunctionName: aws.String(cfg.Name),
		Handler:      aws.String("main"),
		Runtime:      aws.String(lambda.RuntimeGo1X),
		Role:         aws.String(cfg.RoleARN),
		Timeout:      aws.Int64(cfg.Timeout),
		MemorySize:   aws.Int64(cfg.MemorySize),
	}

	_, err := l.Client.CreateFunction(createArgs)
	return err
}

func (l *Client) getFunction(functionName string) (*lambda.GetFunctionOutput, error) {
	getInput := &lambda.GetFunctionInput{
		FunctionName: aws.String(functionName),
	}

	return l.Client.GetFunction(getInput)
}

// Invoke synchronously invokes the deployed function with the given
// payload.
func (l *Client) Invoke(functionName string, payload []byte) ([]byte, error) {
	invokeInput := &lambda.InvokeInput{
		FunctionName: aws.String(functionName),
		Payload:      payload,
	}

	output, err := l.Client.Invoke(invokeInput)
	if err != nil {
		return nil, err
	}
	if output.FunctionError != nil {
		return output.Payload, fmt.Errorf("function error: %s", *output.FunctionError)
	}
	return output.Payload, nil
}
