package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hongsheng-mining/mill-cli/internal/importer"
	"github.com/hongsheng-mining/mill-cli/internal/layout"
	"github.com/hongsheng-mining/mill-cli/internal/model"
	"github.com/hongsheng-mining/mill-cli/internal/shiftdate"
	"github.com/hongsheng-mining/mill-cli/internal/store"
	"github.com/hongsheng-mining/mill-cli/pkg/reportapi"
)

var (
	importDir    string
	importDirect bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import shift reports from a directory of spreadsheets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		files, err := importer.Discover(importDir)
		if err != nil {
			return eris.Wrap(err, "discover files")
		}
		if len(files) == 0 {
			zap.L().Info("no report files found", zap.String("dir", importDir))
			return nil
		}

		templates, err := loadTemplates()
		if err != nil {
			return err
		}

		var sink importer.Sink
		if importDirect {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			sink = &storeSink{st: st}
		} else {
			sink = reportapi.NewClient(cfg.API.BaseURL,
				reportapi.WithMaxRetries(cfg.API.MaxRetries),
				reportapi.WithRateLimit(cfg.API.RateLimit, 1),
			)
		}

		imp := importer.New(sink, importer.Options{
			Templates:   templates,
			Resolver:    shiftdate.NewResolver(cfg.Import.DefaultYear),
			Concurrency: cfg.Import.Concurrency,
		})

		sum, err := imp.Run(ctx, files)
		if err != nil {
			return eris.Wrap(err, "import batch")
		}

		zap.L().Info("import complete",
			zap.Int("files", sum.Files),
			zap.Int("records", sum.Records),
			zap.Int("skipped", sum.Skipped),
			zap.Int("failed", sum.Failed),
		)
		return nil
	},
}

// loadTemplates returns user templates (if configured) ahead of the
// built-in ones, so site-specific layouts win detection.
func loadTemplates() ([]layout.Template, error) {
	templates := layout.Defaults(cfg.Import.ShiftHours)
	if cfg.Import.TemplatesFile == "" {
		return templates, nil
	}
	extra, err := layout.LoadFile(cfg.Import.TemplatesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load templates")
	}
	return append(extra, templates...), nil
}

// storeSink writes payloads straight to the local store, bypassing HTTP.
type storeSink struct {
	st store.Store
}

func (s *storeSink) Submit(ctx context.Context, report model.ReportPayload) error {
	_, err := s.st.SaveReport(ctx, report)
	return err
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", ".", "directory to scan for .xlsx reports")
	importCmd.Flags().BoolVar(&importDirect, "direct", false, "write to the local store instead of uploading")
	rootCmd.AddCommand(importCmd)
}
