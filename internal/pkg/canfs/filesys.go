// Package canfs provides the file backends for canopy jobs. Input data is
// read from a filesystem and result artifacts are written back to one.
// This is abstracted to allow remote filesystems like S3 to be supported.
package canfs

import (
	"io"
	"strings"
)

// FileSystemType is an identifier for supported FileSystems
type FileSystemType int

// Identifiers for supported FileSystemTypes
const (
	Local FileSystemType = iota
	S3
)

// FileSystem abstracts the storage a job reads input from and writes
// artifacts to. Writers returned by OpenWriter are all-or-nothing: the
// written data only becomes visible at the destination path once Close
// returns successfully.
type FileSystem interface {
	ListFiles(pathGlob string) ([]FileInfo, error)
	Stat(filePath string) (FileInfo, error)
	OpenReader(filePath string, startAt int64) (io.ReadCloser, error)
	OpenWriter(filePath string) (io.WriteCloser, error)
	Join(elem ...string) string
	Init() error
}

// FileInfo provides information about a file
type FileInfo struct {
	Name string // file path
	Size int64  // file size in bytes
}

// InitFilesystem initializes a filesystem of the given type.
func InitFilesystem(fsType FileSystemType) FileSystem {
	var fs FileSystem
	switch fsType {
	case Local:
		fs = &LocalFileSystem{}
	case S3:
		fs = &S3FileSystem{}
	}

	fs.Init()
	return fs
}

// TypeOf reports the filesystem type a path belongs to.
func TypeOf(path string) FileSystemType {
	if strings.HasPrefix(path, "s3://") {
		return S3
	}
	return Local
}

// InferFilesystem initializes the filesystem matching the given path.
func InferFilesystem(path string) FileSystem {
	return InitFilesystem(TypeOf(path))
}
