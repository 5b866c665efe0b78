package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongsheng-mining/mill-cli/internal/grid"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	templates := Defaults(8)
	require.Len(t, templates, 2)

	acct := templates[0]
	assert.Equal(t, KindShiftBlocks, acct.Kind)
	require.Len(t, acct.Blocks, 3)
	assert.Equal(t, []ShiftBlock{
		{Name: "甲班", ColStart: 1},
		{Name: "乙班", ColStart: 5},
		{Name: "丙班", ColStart: 9},
	}, acct.Blocks)

	assay := templates[1]
	assert.Equal(t, KindSingleShift, assay.Kind)
	assert.InDelta(t, 8.0, assay.RunTimeHours, 0.0001)
}

func TestDetectByFileName(t *testing.T) {
	t.Parallel()

	templates := Defaults(8)
	empty := grid.New(nil, nil)

	tpl, ok := Detect("核算表8.19.xlsx", empty, templates)
	require.True(t, ok)
	assert.Equal(t, "accounting", tpl.Name)

	tpl, ok = Detect("8.19化验单.xlsx", empty, templates)
	require.True(t, ok)
	assert.Equal(t, "assay", tpl.Name)
}

func TestDetectBySniff(t *testing.T) {
	t.Parallel()

	templates := Defaults(8)

	assayGrid := grid.New([][]string{
		{},
		{"2025年8月19日（2班组）"},
	}, nil)
	tpl, ok := Detect("report.xlsx", assayGrid, templates)
	require.True(t, ok)
	assert.Equal(t, "assay", tpl.Name)

	acctGrid := grid.New([][]string{
		{}, {}, {}, {},
		{"原矿", "3.75"},
	}, nil)
	tpl, ok = Detect("report.xlsx", acctGrid, templates)
	require.True(t, ok)
	assert.Equal(t, "accounting", tpl.Name)
}

func TestDetectNoMatch(t *testing.T) {
	t.Parallel()

	g := grid.New([][]string{{"库存台账"}}, nil)
	_, ok := Detect("库存.xlsx", g, Defaults(8))
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `
- name: legacy
  kind: shift_blocks
  match: ["旧版核算"]
  raw_row: 3
  conc_row: 4
  tail_row: 5
  moisture_row: 6
  blocks:
    - name: 甲班
      col_start: 2
  pb_offset: 0
  ag_offset: 1
  value_offset: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	templates, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "legacy", templates[0].Name)
	assert.Equal(t, KindShiftBlocks, templates[0].Kind)
	assert.Equal(t, 3, templates[0].RawRow)
	assert.Equal(t, 2, templates[0].Blocks[0].ColStart)
}

func TestLoadFileUnknownKind(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: bad\n  kind: pivot\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
