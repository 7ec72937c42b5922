package canopy

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arborlab/canopy/internal/pkg/canfs"
)

func testJobConfig() *JobConfig {
	return &JobConfig{
		TopK:           5,
		Delimiter:      ",",
		Header:         true,
		MaxSkippedRows: 100,

		AddressColumn:     "address",
		SpeciesColumn:     "species",
		MaintenanceColumn: "legal_status",
		PermitColumn:      "permit_notes",

		TargetSpeciesFlagged: "Cherry Plum",
		MaintenanceFlagValue: "DPW Maintained",
		TargetSpeciesPermit:  "Banyan Fig",

		MaxConcurrency: 4,
	}
}

func readTestTable(t *testing.T, csvText string, cfg *JobConfig) (*Table, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trees.csv")
	err := ioutil.WriteFile(path, []byte(csvText), 0644)
	assert.Nil(t, err)

	return readTable(&canfs.LocalFileSystem{}, path, cfg)
}

func TestReadTableNormalizesColumns(t *testing.T) {
	table, err := readTestTable(t, "Tree ID,Address,Species,Legal Status,Permit Notes\n"+
		"1,100 Main St,Ficus :: Banyan Fig,DPW Maintained,Permit 123\n", testJobConfig())
	assert.Nil(t, err)

	assert.Equal(t, []string{
		"tree_id", "address", "species", "legal_status", "permit_notes", "species_common",
	}, table.Schema.Columns)
	assert.Equal(t, 1, table.Len())
}

func TestReadTableDerivesCommonName(t *testing.T) {
	table, err := readTestTable(t, "address,species\n"+
		"100 Main St,Prunus cerasifera :: Cherry Plum\n"+
		"200 Oak St,Cherry Plum\n", testJobConfig())
	assert.Nil(t, err)

	col, ok := table.Schema.Column(speciesCommonColumn)
	assert.True(t, ok)
	assert.Equal(t, "Cherry Plum", table.Value(0, col))
	assert.Equal(t, "Cherry Plum", table.Value(1, col))
}

func TestReadTableSkipsMalformedRows(t *testing.T) {
	table, err := readTestTable(t, "address,species\n"+
		"100 Main St,Cherry Plum\n"+
		"malformed row with,too,many,columns\n"+
		"200 Oak St,Banyan Fig\n", testJobConfig())
	assert.Nil(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 1, table.SkippedRows)
}

func TestReadTableSkipThresholdEscalates(t *testing.T) {
	cfg := testJobConfig()
	cfg.MaxSkippedRows = 0

	_, err := readTestTable(t, "address,species\n"+
		"100 Main St,Cherry Plum\n"+
		"bad,row,here\n", cfg)
	assert.NotNil(t, err)
	assert.IsType(t, &IngestError{}, err)
}

func TestReadTableHeaderless(t *testing.T) {
	cfg := testJobConfig()
	cfg.Header = false

	table, err := readTestTable(t, "100 Main St,Cherry Plum\n200 Oak St,Banyan Fig\n", cfg)
	assert.Nil(t, err)

	assert.Equal(t, 2, table.Len())
	col, ok := table.Schema.Column("col_0")
	assert.True(t, ok)
	assert.Equal(t, "100 Main St", table.Value(0, col))
}

func TestReadTableCustomDelimiter(t *testing.T) {
	cfg := testJobConfig()
	cfg.Delimiter = "|"

	table, err := readTestTable(t, "address|species\n100 Main St|Cherry Plum\n", cfg)
	assert.Nil(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestReadTableInfersTypes(t *testing.T) {
	table, err := readTestTable(t, "tree_id,address\n1,100 Main St\n2,200 Oak St\n", testJobConfig())
	assert.Nil(t, err)

	col, ok := table.Schema.Column("tree_id")
	assert.True(t, ok)
	assert.Equal(t, ColumnInt, table.Schema.Types[col])

	col, ok = table.Schema.Column("address")
	assert.True(t, ok)
	assert.Equal(t, ColumnString, table.Schema.Types[col])
}

func TestReadTableMissingFile(t *testing.T) {
	cfg := testJobConfig()
	_, err := readTable(&canfs.LocalFileSystem{}, filepath.Join(t.TempDir(), "nope.csv"), cfg)

	assert.NotNil(t, err)
	assert.IsType(t, &IngestError{}, err)
}

func TestReadTableEmptyFile(t *testing.T) {
	_, err := readTestTable(t, "", testJobConfig())
	assert.NotNil(t, err)
	assert.IsType(t, &IngestError{}, err)
}
