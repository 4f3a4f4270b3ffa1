package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memohai/linerag/internal/config"
	"github.com/memohai/linerag/internal/kb"
	"github.com/memohai/linerag/internal/logger"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge base management commands",
}

var kbUploadCmd = &cobra.Command{
	Use:   "upload [dir]",
	Short: "Upload markdown files to the shared knowledge base",
	Long: `Upload every *.md file in dir (default: knowledge_base.dir) to the shared
knowledge base store, creating the store if needed. Files whose name is
already in the store are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKBUpload,
}

func init() {
	kbCmd.AddCommand(kbUploadCmd)
}

func runKBUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, config.LineCredentialFields...)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L
	ctx := cmd.Context()

	dir := cfg.KnowledgeBase.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	store, closeStore, err := openStore(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	locker, closeLocker, err := openLocker(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	ai := newGeminiClient(log, cfg, nil)
	reg, err := newRegistry(log, cfg, store, ai, locker, nil)
	if err != nil {
		return err
	}

	report, err := kb.NewLoader(log, cfg.KnowledgeBase.StoreName, cfg.Limits.MaxFileBytes, reg, ai).Upload(ctx, dir)
	out := cmd.OutOrStdout()
	if report.Store != "" {
		fmt.Fprintf(out, "Store: %s (%s)\n", cfg.KnowledgeBase.StoreName, report.Store)
	}
	for _, name := range report.Uploaded {
		fmt.Fprintf(out, "  uploaded  %s\n", name)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(out, "  skipped   %s\n", name)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  failed    %s: %v\n", f.File, f.Err)
	}
	fmt.Fprintf(out, "%d uploaded, %d skipped, %d failed\n", len(report.Uploaded), len(report.Skipped), len(report.Failed))
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d file(s) failed to upload", len(report.Failed))
	}
	return nil
}
