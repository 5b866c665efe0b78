// Package extract turns a cell grid plus a layout template into canonical
// shift records.
package extract

import (
	"go.uber.org/zap"

	"github.com/hongsheng-mining/mill-cli/internal/grid"
	"github.com/hongsheng-mining/mill-cli/internal/layout"
	"github.com/hongsheng-mining/mill-cli/internal/model"
	"github.com/hongsheng-mining/mill-cli/internal/shiftdate"
)

// FileMeta carries the name context the date resolver needs.
type FileMeta struct {
	FileName  string
	ParentDir string
}

// Records extracts zero or more shift records from the grid using the
// template. A shiftdate.ErrUnresolved-wrapped error means the whole file
// should be skipped; absent shift blocks are simply omitted.
func Records(g *grid.Grid, tpl layout.Template, meta FileMeta, res shiftdate.Resolver) ([]model.ShiftRecord, error) {
	switch tpl.Kind {
	case layout.KindShiftBlocks:
		return shiftBlockRecords(g, tpl, meta, res)
	default:
		return singleShiftRecord(g, tpl, meta, res)
	}
}

// shiftBlockRecords reads the side-by-side shift blocks of an accounting
// sheet. A block whose raw-ore lead grade is not positive is treated as
// "shift did not run" and emits nothing, which keeps all-zero records out
// of the reporting service.
func shiftBlockRecords(g *grid.Grid, tpl layout.Template, meta FileMeta, res shiftdate.Resolver) ([]model.ShiftRecord, error) {
	date, err := res.FromPath(meta.FileName, meta.ParentDir)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("file", meta.FileName))

	var records []model.ShiftRecord
	for _, block := range tpl.Blocks {
		colPb := block.ColStart + tpl.PbOffset
		colAg := block.ColStart + tpl.AgOffset
		colVal := block.ColStart + tpl.ValueOffset

		rawPb := g.Float(tpl.RawRow, colPb)
		if rawPb <= 0 {
			log.Debug("shift block absent", zap.String("shift", block.Name))
			continue
		}

		records = append(records, model.ShiftRecord{
			ShiftDate:    date,
			ShiftType:    block.Name,
			RunTimeHours: g.Float(tpl.RawRow, colVal),
			RawOre: model.OreStream{
				WetWeightTon: g.Float(tpl.ConcRow, colVal), // processing volume
				MoisturePct:  g.Float(tpl.MoistureRow, colVal),
				Grades: model.Grades{
					PbPct: rawPb,
					AgGPT: g.Float(tpl.RawRow, colAg),
				},
			},
			Concentrate: model.OreStream{
				Grades: model.Grades{
					PbPct: g.Float(tpl.ConcRow, colPb),
					AgGPT: g.Float(tpl.ConcRow, colAg),
				},
			},
			Tailings: model.OreStream{
				Grades: model.Grades{
					PbPct: g.Float(tpl.TailRow, colPb),
					AgGPT: g.Float(tpl.TailRow, colAg),
				},
				FinenessPct: g.Float(tpl.TailRow, colVal),
			},
		})
	}

	return records, nil
}

// singleShiftRecord reads an assay sheet that covers exactly one shift.
// The file name is tried first for the date; the free-text header supplies
// the shift code and serves as the date fallback.
func singleShiftRecord(g *grid.Grid, tpl layout.Template, meta FileMeta, res shiftdate.Resolver) ([]model.ShiftRecord, error) {
	header := g.String(tpl.HeaderRow, tpl.HeaderCol)

	date, pathErr := res.FromPath(meta.FileName, meta.ParentDir)
	headerDate, shift, headerErr := res.FromHeader(header)

	if pathErr != nil {
		if headerErr != nil {
			return nil, headerErr
		}
		date = headerDate
	}
	if headerErr != nil {
		shift = res.DefaultShift
	}

	// Most assay sheets carry grades only; moisture is read when the
	// template places it, otherwise it stays 0 and dry weight equals wet.
	var moisture float64
	if tpl.MoistureRow > 0 {
		moisture = g.Float(tpl.MoistureRow, tpl.PbCol)
	}

	rec := model.ShiftRecord{
		ShiftDate:    date,
		ShiftType:    shift,
		RunTimeHours: tpl.RunTimeHours,
		RawOre: model.OreStream{
			MoisturePct: moisture,
			Grades: model.Grades{
				PbPct: g.Float(tpl.RawRow, tpl.PbCol),
				ZnPct: g.Float(tpl.RawRow, tpl.ZnCol),
				AgGPT: g.Float(tpl.RawRow, tpl.AgCol),
			},
		},
		Concentrate: model.OreStream{
			Grades: model.Grades{
				PbPct: g.Float(tpl.ConcRow, tpl.PbCol),
				ZnPct: g.Float(tpl.ConcRow, tpl.ZnCol),
				AgGPT: g.Float(tpl.ConcRow, tpl.AgCol),
			},
		},
		Tailings: model.OreStream{
			Grades: model.Grades{
				PbPct: g.Float(tpl.TailRow, tpl.PbCol),
				ZnPct: g.Float(tpl.TailRow, tpl.ZnCol),
				AgGPT: g.Float(tpl.TailRow, tpl.AgCol),
			},
		},
	}

	return []model.ShiftRecord{rec}, nil
}
