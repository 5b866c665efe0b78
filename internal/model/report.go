// Package model holds the canonical shift record and the wire payload
// consumed by the reports API.
package model

import "math"

// Grades holds metal concentrations for one process stream.
// Lead and zinc are percentages, silver is grams per ton.
type Grades struct {
	PbPct float64 `json:"pbPct"`
	ZnPct float64 `json:"znPct"`
	AgGPT float64 `json:"agGpt"`
}

// MetalContent holds absolute metal mass derived from dry weight and grades.
type MetalContent struct {
	PbTon float64 `json:"pbTon"`
	ZnTon float64 `json:"znTon"`
	AgKg  float64 `json:"agKg"`
}

// OreStream is one processing stream (raw ore, concentrate or tailings).
// DryWeightTon and Metal start at zero and are populated by the balance
// calculator; FinenessPct is only measured on tailings.
type OreStream struct {
	WetWeightTon float64      `json:"wetWeightTon"`
	MoisturePct  float64      `json:"moisturePct"`
	Grades       Grades       `json:"grades"`
	FinenessPct  float64      `json:"finenessPct"`
	DryWeightTon float64      `json:"dryWeightTon"`
	Metal        MetalContent `json:"metal"`
}

// PerformanceMetrics holds the derived plant indicators for one shift.
// All fields default to zero and stay zero when the corresponding raw-ore
// denominator is zero.
type PerformanceMetrics struct {
	YieldPct          float64 `json:"yieldPct"`
	RecoveryPbPct     float64 `json:"recoveryPbPct"`
	RecoveryZnPct     float64 `json:"recoveryZnPct"`
	RecoveryAgPct     float64 `json:"recoveryAgPct"`
	EnrichmentRatioPb float64 `json:"enrichmentRatioPb"`
}

// ShiftRecord is the canonical record for one (date, shift) pair.
// Records are self-contained values: they keep no reference to the grid
// they were extracted from or to each other.
type ShiftRecord struct {
	ShiftDate    string             `json:"shiftDate"` // YYYY-MM-DD
	ShiftType    string             `json:"shiftType"`
	RunTimeHours float64            `json:"runTimeHours"`
	RawOre       OreStream          `json:"rawOre"`
	Concentrate  OreStream          `json:"concentrate"`
	Tailings     OreStream          `json:"tailings"`
	Performance  PerformanceMetrics `json:"performance"`
}

// ProcessingRatePerHour returns raw-ore tons processed per running hour,
// rounded to two decimals for reporting. Zero when run time is unreported.
func (r ShiftRecord) ProcessingRatePerHour() float64 {
	if r.RunTimeHours <= 0 {
		return 0
	}
	return math.Round(r.RawOre.WetWeightTon/r.RunTimeHours*100) / 100
}

// RawOrePayload is the raw-ore section of the upload payload.
type RawOrePayload struct {
	WetWeight float64 `json:"wetWeight"`
	Moisture  float64 `json:"moisture"`
	PbGrade   float64 `json:"pbGrade"`
	ZnGrade   float64 `json:"znGrade"`
	AgGrade   float64 `json:"agGrade"`
}

// ConcentratePayload is the concentrate section of the upload payload.
type ConcentratePayload struct {
	PbGrade float64 `json:"pbGrade"`
	ZnGrade float64 `json:"znGrade"`
	AgGrade float64 `json:"agGrade"`
}

// TailingsPayload is the tailings section of the upload payload.
type TailingsPayload struct {
	PbGrade  float64 `json:"pbGrade"`
	ZnGrade  float64 `json:"znGrade"`
	AgGrade  float64 `json:"agGrade"`
	Fineness float64 `json:"fineness"`
}

// ReportPayload is the JSON object posted to the reports API, one per shift.
// Fields the source template does not carry are emitted as zero.
type ReportPayload struct {
	ShiftDate   string             `json:"shiftDate"`
	ShiftType   string             `json:"shiftType"`
	RunTime     float64            `json:"runTime"`
	RawOre      RawOrePayload      `json:"rawOre"`
	Concentrate ConcentratePayload `json:"concentrate"`
	Tailings    TailingsPayload    `json:"tailings"`
}

// Payload converts the record into the wire shape for the reports API.
func (r ShiftRecord) Payload() ReportPayload {
	return ReportPayload{
		ShiftDate: r.ShiftDate,
		ShiftType: r.ShiftType,
		RunTime:   r.RunTimeHours,
		RawOre: RawOrePayload{
			WetWeight: r.RawOre.WetWeightTon,
			Moisture:  r.RawOre.MoisturePct,
			PbGrade:   r.RawOre.Grades.PbPct,
			ZnGrade:   r.RawOre.Grades.ZnPct,
			AgGrade:   r.RawOre.Grades.AgGPT,
		},
		Concentrate: ConcentratePayload{
			PbGrade: r.Concentrate.Grades.PbPct,
			ZnGrade: r.Concentrate.Grades.ZnPct,
			AgGrade: r.Concentrate.Grades.AgGPT,
		},
		Tailings: TailingsPayload{
			PbGrade:  r.Tailings.Grades.PbPct,
			ZnGrade:  r.Tailings.Grades.ZnPct,
			AgGrade:  r.Tailings.Grades.AgGPT,
			Fineness: r.Tailings.FinenessPct,
		},
	}
}
