package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/fit-intervals/merge"
	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/session/sessiontest"
)

func mergedStream() *session.Stream {
	src := sessiontest.Steady(100, 220, 145)
	out, _ := merge.Build(src, []session.Interval{
		{ID: "a", StartS: 10, StopS: 14},
		{ID: "b", StartS: 50, StopS: 54},
	}, merge.Options{})
	return out
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, mergedStream()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 11)
	assert.Equal(t, Columns, records[0])

	first := records[1]
	assert.Equal(t, "0", first[0])
	assert.Equal(t, "0", first[1])
	assert.Equal(t, "220", first[2])
	assert.Equal(t, "", first[6], "altitude is absent")
	assert.Equal(t, "10", first[14])
	assert.Equal(t, "false", first[15])

	resumed := records[6]
	assert.Equal(t, "5", resumed[0])
	assert.Equal(t, "50", resumed[14])
	assert.Equal(t, "true", resumed[15])
}

func TestWriteCSVEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &session.Stream{}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMarshalParquet(t *testing.T) {
	data, err := MarshalParquet(mergedStream())
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestWriteFileByExtension(t *testing.T) {
	dir := t.TempDir()
	stream := mergedStream()

	csvPath := filepath.Join(dir, "selection.csv")
	require.NoError(t, WriteFile(csvPath, stream))
	info, err := os.Stat(csvPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	pqPath := filepath.Join(dir, "selection.parquet")
	require.NoError(t, WriteFile(pqPath, stream))
	data, err := os.ReadFile(pqPath)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))

	require.Error(t, WriteFile(filepath.Join(dir, "selection.xlsx"), stream))
}
