package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hongsheng-mining/mill-cli/internal/balance"
	"github.com/hongsheng-mining/mill-cli/internal/extract"
	"github.com/hongsheng-mining/mill-cli/internal/grid"
	"github.com/hongsheng-mining/mill-cli/internal/layout"
	"github.com/hongsheng-mining/mill-cli/internal/shiftdate"
)

var inspectFile string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parse one report file and print its canonical records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("inspect"); err != nil {
			return err
		}

		fileName := filepath.Base(inspectFile)
		parentDir := filepath.Base(filepath.Dir(inspectFile))

		g, err := grid.Load(inspectFile, grid.Options{
			Warn: func(row, col int, raw string) {
				zap.L().Warn("malformed cell treated as 0",
					zap.Int("row", row), zap.Int("col", col), zap.String("value", raw))
			},
		})
		if err != nil {
			return eris.Wrap(err, "load grid")
		}

		templates, err := loadTemplates()
		if err != nil {
			return err
		}

		tpl, ok := layout.Detect(fileName, g, templates)
		if !ok {
			return eris.Errorf("no layout template matched %q", fileName)
		}
		if tpl.SheetIndex != 0 {
			if g, err = grid.Load(inspectFile, grid.Options{SheetIndex: tpl.SheetIndex}); err != nil {
				return eris.Wrap(err, "load sheet")
			}
		}

		meta := extract.FileMeta{FileName: fileName, ParentDir: parentDir}
		recs, err := extract.Records(g, tpl, meta, shiftdate.NewResolver(cfg.Import.DefaultYear))
		if err != nil {
			return eris.Wrap(err, "extract records")
		}

		for i := range recs {
			recs[i] = balance.Compute(recs[i])
		}

		out, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal records")
		}
		fmt.Println(string(out))

		zap.L().Info("inspect complete",
			zap.String("template", tpl.Name),
			zap.Int("records", len(recs)),
		)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "path to .xlsx report file (required)")
	_ = inspectCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(inspectCmd)
}
