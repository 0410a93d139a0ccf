package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/logger"
	"live-quiz-service/internal/spreadsheet"
)

// NewImportCmd loads questions from an XLSX sheet into an existing quiz.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		quizID int64
		file   string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from an XLSX sheet (text | type | correct | opt1..opt4)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("import needs postgres url")
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Env)
			defer log.Sync()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			drafts, err := spreadsheet.ReadQuestions(f)
			if err != nil {
				return err
			}

			svc, err := buildServices(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.catalog.ImportQuestions(cmd.Context(), quizID, drafts)
			if err != nil {
				return err
			}
			for _, r := range report.Rejected {
				log.Warn("row rejected", zap.Int("row", r.Row), zap.String("reason", r.Reason))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions, rejected %d\n", len(report.Imported), len(report.Rejected))
			return nil
		},
	}
	cmd.Flags().Int64Var(&quizID, "quiz-id", 0, "quiz to append questions to")
	cmd.Flags().StringVar(&file, "file", "", "path to the XLSX file")
	_ = cmd.MarkFlagRequired("quiz-id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// NewExportCmd writes a game's leaderboard and question stats to an XLSX file.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		gameID int64
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a game report as XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("export needs postgres url")
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Env)
			defer log.Sync()

			svc, err := buildServices(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.reporter.GameReport(cmd.Context(), gameID)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := spreadsheet.WriteGameReport(&buf, report); err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("game-%d.xlsx", gameID)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&gameID, "game-id", 0, "game to export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default game-<id>.xlsx)")
	_ = cmd.MarkFlagRequired("game-id")
	return cmd
}
