package canopy

import (
	"bytes"
	"encoding/csv"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/arborlab/canopy/internal/pkg/canfs"
)

// artifactName returns the path of the artifact a result is persisted to.
func artifactName(fs canfs.FileSystem, outDir, name string) string {
	return fs.Join(outDir, name+".csv")
}

// writeResult persists one statistic's result as a CSV artifact named by
// the statistic, overwriting any prior artifact of the same name. The
// whole artifact is encoded in memory and handed to the filesystem as a
// single write, so a failed run never leaves a partial artifact behind.
func writeResult(fs canfs.FileSystem, outDir string, res *Result) error {
	buf := new(bytes.Buffer)
	enc := csv.NewWriter(buf)

	if err := enc.Write(res.Columns); err != nil {
		return &PersistError{Artifact: res.Name, Err: err}
	}
	for _, row := range res.Rows {
		if err := enc.Write(row); err != nil {
			return &PersistError{Artifact: res.Name, Err: err}
		}
	}
	enc.Flush()
	if err := enc.Error(); err != nil {
		return &PersistError{Artifact: res.Name, Err: err}
	}

	path := artifactName(fs, outDir, res.Name)
	writer, err := fs.OpenWriter(path)
	if err != nil {
		return &PersistError{Artifact: res.Name, Err: err}
	}
	if _, err := writer.Write(buf.Bytes()); err != nil {
		writer.Close()
		return &PersistError{Artifact: res.Name, Err: err}
	}
	if err := writer.Close(); err != nil {
		return &PersistError{Artifact: res.Name, Err: err}
	}

	log.Debugf("Wrote artifact %s", path)
	return nil
}

// readResult loads a persisted artifact back into a Result, preserving row
// order. Consumers of canopy output and the round-trip tests use it.
func readResult(fs canfs.FileSystem, outDir, name string) (*Result, error) {
	path := artifactName(fs, outDir, name)

	reader, err := fs.OpenReader(path, 0)
	if err != nil {
		return nil, &PersistError{Artifact: name, Err: err}
	}
	defer reader.Close()

	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return nil, &PersistError{Artifact: name, Err: err}
	}
	if len(records) == 0 {
		return nil, &PersistError{Artifact: name, Err: fmt.Errorf("artifact has no header")}
	}

	return &Result{
		Name:    name,
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}
