package canfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitFilesystem(t *testing.T) {
	fs := InitFilesystem(S3)
	assert.NotNil(t, fs)
	assert.IsType(t, &S3FileSystem{}, fs)

	fs = InitFilesystem(Local)
	assert.NotNil(t, fs)
	assert.IsType(t, &LocalFileSystem{}, fs)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, S3, TypeOf("s3://foo/bar.csv"))
	assert.Equal(t, Local, TypeOf("./bar.csv"))
	assert.Equal(t, Local, TypeOf("/data/trees.csv"))
}

func TestInferFilesystem(t *testing.T) {
	fs := InferFilesystem("s3://foo/bar.csv")
	assert.NotNil(t, fs)
	assert.IsType(t, &S3FileSystem{}, fs)

	fs = InferFilesystem("./bar.csv")
	assert.NotNil(t, fs)
	assert.IsType(t, &LocalFileSystem{}, fs)
}
