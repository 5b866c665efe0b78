// Package layout describes where each (stream, metric) pair lives in a
// known report family. Templates are pure data: one shared extractor walks
// a grid using whichever template matched, so new report shapes mean a new
// template, not new extraction code.
package layout

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/hongsheng-mining/mill-cli/internal/grid"
)

// Kind selects which extraction walk a template drives.
type Kind string

const (
	// KindShiftBlocks lays three shifts side by side in fixed column
	// blocks on one sheet (the 核算表 accounting family).
	KindShiftBlocks Kind = "shift_blocks"

	// KindSingleShift dedicates the whole file to one shift, with the
	// date and shift code in a free-text header (the 化验单 assay family).
	KindSingleShift Kind = "single_shift"
)

// ShiftBlock names one shift's column block in a shift_blocks sheet.
type ShiftBlock struct {
	Name     string `yaml:"name"`
	ColStart int    `yaml:"col_start"`
}

// Template maps grid coordinates to record fields for one report family.
// Row/column indexes are 0-based. Fields that a family does not carry are
// left at their zero value and the extractor emits 0 for them.
type Template struct {
	Name       string   `yaml:"name"`
	Kind       Kind     `yaml:"kind"`
	Match      []string `yaml:"match"` // file-name substrings
	SheetIndex int      `yaml:"sheet_index"`

	// Stream rows, shared by both kinds.
	RawRow      int `yaml:"raw_row"`
	ConcRow     int `yaml:"conc_row"`
	TailRow     int `yaml:"tail_row"`
	MoistureRow int `yaml:"moisture_row"` // 0 disables; column is the block value column or PbCol

	// shift_blocks: offsets within each block, relative to col_start.
	Blocks      []ShiftBlock `yaml:"blocks"`
	PbOffset    int          `yaml:"pb_offset"`
	AgOffset    int          `yaml:"ag_offset"`
	ValueOffset int          `yaml:"value_offset"` // run time / wet weight / fineness column

	// single_shift: header cell and fixed grade columns.
	HeaderRow int `yaml:"header_row"`
	HeaderCol int `yaml:"header_col"`
	PbCol     int `yaml:"pb_col"`
	ZnCol     int `yaml:"zn_col"` // -1 when the family carries no zinc assay
	AgCol     int `yaml:"ag_col"`

	// Assumed shift length when the sheet does not report run time.
	RunTimeHours float64 `yaml:"run_time_hours"`
}

// Defaults returns the built-in templates for the two known report
// families, in detection order.
func Defaults(shiftHours float64) []Template {
	return []Template{
		{
			Name:        "accounting",
			Kind:        KindShiftBlocks,
			Match:       []string{"核算表"},
			RawRow:      4,
			ConcRow:     5,
			TailRow:     6,
			MoistureRow: 7,
			Blocks: []ShiftBlock{
				{Name: "甲班", ColStart: 1},
				{Name: "乙班", ColStart: 5},
				{Name: "丙班", ColStart: 9},
			},
			PbOffset:    0,
			AgOffset:    1,
			ValueOffset: 3,
		},
		{
			Name:         "assay",
			Kind:         KindSingleShift,
			Match:        []string{"化验单"},
			RawRow:       4,
			ConcRow:      5,
			TailRow:      6,
			HeaderRow:    1,
			HeaderCol:    0,
			PbCol:        1,
			ZnCol:        2,
			AgCol:        3,
			RunTimeHours: shiftHours,
		},
	}
}

// LoadFile reads extra templates from a YAML file. These are tried before
// the built-in defaults, so a site-specific layout can shadow a stock one.
func LoadFile(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "layout: read templates file")
	}

	var templates []Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, eris.Wrap(err, "layout: parse templates file")
	}

	for _, t := range templates {
		if t.Kind != KindShiftBlocks && t.Kind != KindSingleShift {
			return nil, eris.Errorf("layout: template %q: unknown kind %q", t.Name, t.Kind)
		}
	}

	return templates, nil
}

// Detect picks the template for a file, first by file-name substring, then
// by sniffing the grid. Returns false when no family matches; the caller
// skips the file with a diagnostic.
func Detect(fileName string, g *grid.Grid, templates []Template) (Template, bool) {
	for _, t := range templates {
		for _, m := range t.Match {
			if m != "" && strings.Contains(fileName, m) {
				return t, true
			}
		}
	}

	for _, t := range templates {
		if sniff(t, g) {
			return t, true
		}
	}

	return Template{}, false
}

// sniff checks whether the grid content looks like the template's family.
func sniff(t Template, g *grid.Grid) bool {
	switch t.Kind {
	case KindSingleShift:
		header := g.String(t.HeaderRow, t.HeaderCol)
		return strings.Contains(header, "年") && strings.Contains(header, "班组")
	case KindShiftBlocks:
		// Stream labels sit in column 0 of the stream rows.
		return strings.Contains(g.String(t.RawRow, 0), "原矿")
	default:
		return false
	}
}
