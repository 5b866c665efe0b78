package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/hongsheng-mining/mill-cli/internal/layout"
	"github.com/hongsheng-mining/mill-cli/internal/model"
	"github.com/hongsheng-mining/mill-cli/internal/shiftdate"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type memorySink struct {
	mu       sync.Mutex
	payloads []model.ReportPayload
}

func (s *memorySink) Submit(_ context.Context, p model.ReportPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	return nil
}

type failingSink struct{}

func (failingSink) Submit(context.Context, model.ReportPayload) error {
	return eris.New("service unavailable")
}

// writeXLSX writes rows to a single-sheet workbook. Row values are placed
// at explicit column indexes so fixtures read like the sheet they mimic.
func writeXLSX(t *testing.T, path string, rows []map[int]string) {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)

	for _, cells := range rows {
		r := sheet.AddRow()
		width := 0
		for col := range cells {
			if col >= width {
				width = col + 1
			}
		}
		for col := 0; col < width; col++ {
			r.AddCell().SetString(cells[col])
		}
	}

	require.NoError(t, f.Save(path))
}

// writeAccountingXLSX writes a two-shift accounting sheet: 甲班 and 丙班
// ran, 乙班 did not.
func writeAccountingXLSX(t *testing.T, path string) {
	t.Helper()
	writeXLSX(t, path, []map[int]string{
		{}, {}, {}, {},
		{0: "原矿", 1: "3.75", 2: "161", 4: "8", 9: "2.8", 10: "120", 12: "7.5"},
		{0: "铅精矿", 1: "65.27", 2: "3352", 4: "128", 9: "61.4", 10: "2980", 12: "96"},
		{0: "尾矿", 1: "0.13", 2: "8", 4: "72.5", 9: "0.15", 10: "9", 12: "70"},
		{0: "水分", 4: "3", 12: "2.6"},
	})
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "8月"), 0o755))

	for _, name := range []string{
		"核算表8.19.xlsx",
		"8月/核算表8.20.XLSX",
		"8月/~$核算表8.20.xlsx",
		"说明.txt",
		"旧报表.xls",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	files, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(root, "8月", "核算表8.20.XLSX"), files[0])
	assert.Equal(t, filepath.Join(root, "核算表8.19.xlsx"), files[1])
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "8月")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeAccountingXLSX(t, filepath.Join(dir, "核算表8.19.xlsx"))

	sink := &memorySink{}
	imp := New(sink, Options{
		Templates:   layout.Defaults(8),
		Resolver:    shiftdate.NewResolver(2025),
		Concurrency: 2,
	})

	files, err := Discover(dir)
	require.NoError(t, err)

	sum, err := imp.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, Summary{Files: 1, Records: 2}, sum)
	require.Len(t, sink.payloads, 2)

	first := sink.payloads[0]
	assert.Equal(t, "2025-08-19", first.ShiftDate)
	assert.Equal(t, "甲班", first.ShiftType)
	assert.InDelta(t, 8.0, first.RunTime, 0.0001)
	assert.InDelta(t, 128.0, first.RawOre.WetWeight, 0.0001)
	assert.InDelta(t, 3.0, first.RawOre.Moisture, 0.0001)
	assert.InDelta(t, 65.27, first.Concentrate.PbGrade, 0.0001)
	assert.Equal(t, "丙班", sink.payloads[1].ShiftType)
}

func TestRunBadFilesDoNotAbortBatch(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "8月")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// One good file, one corrupt workbook, one with no recognizable
	// layout, one whose date cannot be resolved.
	writeAccountingXLSX(t, filepath.Join(dir, "核算表8.19.xlsx"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "损坏.核算表8.20.xlsx"), []byte("not a workbook"), 0o644))
	writeXLSX(t, filepath.Join(dir, "设备台账20250801.xlsx"), []map[int]string{{0: "设备清单"}})
	writeAccountingXLSX(t, filepath.Join(dir, "核算表草稿.xlsx"))

	sink := &memorySink{}
	imp := New(sink, Options{
		Templates:   layout.Defaults(8),
		Resolver:    shiftdate.NewResolver(2025),
		Concurrency: 4,
	})

	files, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	sum, err := imp.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, Summary{Files: 4, Records: 2, Skipped: 2, Failed: 1}, sum)
	assert.Len(t, sink.payloads, 2)
}

func TestRunSinkFailureCountsAsFailed(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "8月")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeAccountingXLSX(t, filepath.Join(dir, "核算表8.19.xlsx"))

	imp := New(failingSink{}, Options{
		Templates: layout.Defaults(8),
		Resolver:  shiftdate.NewResolver(2025),
	})

	files, err := Discover(dir)
	require.NoError(t, err)

	sum, err := imp.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, Summary{Files: 1, Failed: 1}, sum)
}

func TestNewClampsConcurrency(t *testing.T) {
	t.Parallel()

	imp := New(&memorySink{}, Options{Concurrency: 0})
	assert.Equal(t, 1, imp.opts.Concurrency)
}
