// Package shiftdate resolves the calendar date and shift label for a
// report file from its name, parent directory or embedded header text.
package shiftdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

// ErrUnresolved is returned when no date pattern matches. Callers skip the
// file and move on; it is never fatal to a batch.
var ErrUnresolved = eris.New("shiftdate: no date pattern matched")

var (
	longDateRe  = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
	shortDateRe = regexp.MustCompile(`(\d+)\.(\d+)`)
	yearTokenRe = regexp.MustCompile(`(?:19|20)\d{2}`)

	// Matched against width-normalized header text, e.g.
	// "报告日期： 2025 年 8 月 19 日 （ 2 班组）".
	headerRe = regexp.MustCompile(`(\d+)\s*年\s*(\d+)\s*月\s*(\d+)\s*日.*\(\s*(\d+)\s*班组`)
)

// Resolver applies the date/shift heuristics for one report corpus.
type Resolver struct {
	DefaultYear  int               // year assumed for short M.D file names
	ShiftCodes   map[string]string // header shift code → label
	DefaultShift string            // label for unrecognized codes
}

// NewResolver returns a Resolver with the plant's standard shift-code table.
func NewResolver(defaultYear int) Resolver {
	return Resolver{
		DefaultYear: defaultYear,
		ShiftCodes: map[string]string{
			"1": "早班",
			"2": "中班",
			"3": "晚班",
		},
		DefaultShift: "早班",
	}
}

// FromPath resolves a date from the file name and its parent directory name.
//
// A full YYYYMMDD embedded anywhere in the file name wins. Year "2006" is
// corrected to "2026" when the directory name contains "2026" — a known
// naming defect in that report batch, not a general rule. Otherwise a short
// M.D date takes the default year, unless the directory name carries an
// explicit 4-digit year token.
func (r Resolver) FromPath(fileName, parentDir string) (string, error) {
	if m := longDateRe.FindStringSubmatch(fileName); m != nil {
		year := m[1]
		if year == "2006" && strings.Contains(parentDir, "2026") {
			year = "2026"
		}
		return year + "-" + m[2] + "-" + m[3], nil
	}

	if m := shortDateRe.FindStringSubmatch(fileName); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			year := r.DefaultYear
			if tok := yearTokenRe.FindString(parentDir); tok != "" {
				year, _ = strconv.Atoi(tok)
			}
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
		}
	}

	return "", eris.Wrapf(ErrUnresolved, "file %q", fileName)
}

// FromHeader resolves date and shift label from a free-text report header.
// Full-width digits and parentheses are normalized before matching, since
// the sheets mix both conventions.
func (r Resolver) FromHeader(text string) (date, shift string, err error) {
	norm := width.Narrow.String(text)
	norm = strings.ReplaceAll(norm, "　", " ")

	m := headerRe.FindStringSubmatch(norm)
	if m == nil {
		return "", "", eris.Wrapf(ErrUnresolved, "header %q", text)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), r.ShiftName(m[4]), nil
}

// ShiftName maps a header shift code to its label. Unrecognized codes fall
// back to the default shift rather than failing.
func (r Resolver) ShiftName(code string) string {
	if name, ok := r.ShiftCodes[code]; ok {
		return name
	}
	return r.DefaultShift
}
