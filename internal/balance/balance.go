// Package balance computes the metallurgical mass balance for a shift
// record: dry weights, contained metal, yield, recovery and enrichment.
package balance

import "github.com/hongsheng-mining/mill-cli/internal/model"

// Compute returns a copy of rec with all derived fields populated.
// The input is taken by value and never mutated, so calling Compute twice
// yields identical results.
//
// Denominator guards use strict > 0: upstream values come straight from
// source cells and are nonnegative by construction, so a zero denominator
// means "not measured" and leaves the metric at its zero default.
func Compute(rec model.ShiftRecord) model.ShiftRecord {
	rec.RawOre = computeStream(rec.RawOre)
	rec.Concentrate = computeStream(rec.Concentrate)
	rec.Tailings = computeStream(rec.Tailings)

	perf := model.PerformanceMetrics{}
	raw, conc := rec.RawOre, rec.Concentrate

	if raw.DryWeightTon > 0 {
		perf.YieldPct = conc.DryWeightTon / raw.DryWeightTon * 100

		if raw.Metal.PbTon > 0 {
			perf.RecoveryPbPct = conc.Metal.PbTon / raw.Metal.PbTon * 100
		}
		if raw.Metal.ZnTon > 0 {
			perf.RecoveryZnPct = conc.Metal.ZnTon / raw.Metal.ZnTon * 100
		}
		if raw.Metal.AgKg > 0 {
			perf.RecoveryAgPct = conc.Metal.AgKg / raw.Metal.AgKg * 100
		}
		if raw.Grades.PbPct > 0 {
			perf.EnrichmentRatioPb = conc.Grades.PbPct / raw.Grades.PbPct
		}
	}

	rec.Performance = perf
	return rec
}

// computeStream derives dry weight and contained metal for one stream.
// Silver grade is g/t so contained silver comes out in kilograms.
func computeStream(s model.OreStream) model.OreStream {
	s.DryWeightTon = s.WetWeightTon * (1 - s.MoisturePct/100)
	s.Metal = model.MetalContent{
		PbTon: s.DryWeightTon * s.Grades.PbPct / 100,
		ZnTon: s.DryWeightTon * s.Grades.ZnPct / 100,
		AgKg:  s.DryWeightTon * s.Grades.AgGPT / 1000,
	}
	return s
}
