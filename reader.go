package canopy

import (
	"encoding/csv"
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/arborlab/canopy/internal/pkg/canfs"
)

// schemaSampleSize is the number of rows used for type inference before
// the inference is validated against the rest of the table.
const schemaSampleSize = 1000

// speciesSeparator splits the inventory's "Latin Name :: Common Name"
// species convention.
const speciesSeparator = "::"

// speciesCommonColumn is the derived column holding the common name part
// of the species value. Filters and grouping run against it.
const speciesCommonColumn = "species_common"

// readTable loads the delimited source file at path into a Table.
//
// Column names are normalized to canonical form. Rows with the wrong
// number of columns are skipped and counted rather than failing the read;
// a skip count above cfg.MaxSkippedRows escalates to an IngestError.
func readTable(fs canfs.FileSystem, path string, cfg *JobConfig) (*Table, error) {
	fInfo, err := fs.Stat(path)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}

	source, err := fs.OpenReader(path, 0)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	defer source.Close()

	reader := csv.NewReader(source)
	reader.Comma = []rune(cfg.Delimiter)[0]
	// Column counts are checked manually so a malformed row can be
	// skipped instead of aborting the read.
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	if len(records) == 0 {
		return nil, &IngestError{Path: path, Err: fmt.Errorf("source table is empty")}
	}

	var columns []string
	if cfg.Header {
		for _, name := range records[0] {
			columns = append(columns, normalizeColumn(name))
		}
		records = records[1:]
	} else {
		for i := range records[0] {
			columns = append(columns, fmt.Sprintf("col_%d", i))
		}
	}

	rows := make([]Row, 0, len(records))
	skipped := 0
	for _, record := range records {
		if len(record) != len(columns) {
			skipped++
			continue
		}
		rows = append(rows, Row(record))
	}
	if skipped > cfg.MaxSkippedRows {
		return nil, &IngestError{
			Path: path,
			Err:  fmt.Errorf("%d malformed rows exceeds limit of %d", skipped, cfg.MaxSkippedRows),
		}
	}

	types := inferTypes(len(columns), rows, schemaSampleSize)

	table := &Table{
		Schema:      newSchema(columns, types),
		Rows:        rows,
		SkippedRows: skipped,
	}
	deriveCommonSpecies(table, cfg.SpeciesColumn)

	if skipped > 0 {
		log.Warnf("Skipped %d malformed rows in %s", skipped, path)
	}
	log.Infof("Ingested %s rows (%s) from %s",
		humanize.Comma(int64(table.Len())), humanize.Bytes(uint64(fInfo.Size)), path)

	return table, nil
}

// deriveCommonSpecies appends the species_common column, holding the part
// of the species value after the "::" separator (the inventory records
// species as "Latin Name :: Common Name"). Values without the separator
// pass through trimmed. Tables without the species column are left as-is.
func deriveCommonSpecies(t *Table, speciesColumn string) {
	col, ok := t.Schema.Column(speciesColumn)
	if !ok {
		return
	}
	if _, taken := t.Schema.Column(speciesCommonColumn); taken {
		return
	}

	for i, row := range t.Rows {
		t.Rows[i] = append(row, commonName(row[col]))
	}
	t.Schema = newSchema(
		append(t.Schema.Columns, speciesCommonColumn),
		append(t.Schema.Types, ColumnString),
	)
}

func commonName(species string) string {
	if i := strings.Index(species, speciesSeparator); i >= 0 {
		return strings.TrimSpace(species[i+len(speciesSeparator):])
	}
	return strings.TrimSpace(species)
}
