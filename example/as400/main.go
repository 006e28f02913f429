package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"github.com/spf13/cobra"

	"github.com/Vignesh4110/finance-modernization/example/as400/app"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

// exitCode は各サブコマンドの結果です。cobra のエラーとは別に保持します。
var exitCode int

var (
	inputDir  string
	outputDir string
	seed      int64
	maxErrors int
)

var rootCmd = &cobra.Command{
	Use:   "as400",
	Short: "AS400 fixed-width physical file toolkit",
	Long: `Decode, encode and ingest AS400 fixed-width physical files
(CUSMAS, ARMAS, PAYTRAN, GLJRN).

Configuration is read from the embedded application.yaml, the .env file
named by ENV_FILE_PATH (default .env) and environment variables.`,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the physical files of a directory into the configured sinks",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd.Context(), func(ctx context.Context, a *app.Application) int {
			return a.RunIngest(ctx, inputDir)
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate deterministic synthetic physical files",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var s *int64
		if cmd.Flags().Changed("seed") {
			s = &seed
		}
		withApp(cmd.Context(), func(ctx context.Context, a *app.Application) int {
			return a.RunGenerate(ctx, outputDir, s)
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify DIR",
	Short: "Check that clean records re-encode to a fixed point",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = app.RunVerify(cmd.Context(), args[0], maxErrors)
	},
}

var layoutsCmd = &cobra.Command{
	Use:   "layouts [NAME...]",
	Short: "Print the built-in record layouts",
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = app.RunLayouts(cmd.OutOrStdout(), args)
	},
}

var showCmd = &cobra.Command{
	Use:   "show EXECUTION_ID",
	Short: "Show a job execution with its step counts and parse errors",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd.Context(), func(ctx context.Context, a *app.Application) int {
			return a.RunShow(ctx, args[0], maxErrors)
		})
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart EXECUTION_ID",
	Short: "Restart a failed or stopped job execution",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd.Context(), func(ctx context.Context, a *app.Application) int {
			return a.RunRestart(ctx, args[0])
		})
	},
}

var abandonCmd = &cobra.Command{
	Use:   "abandon EXECUTION_ID",
	Short: "Mark a job execution as abandoned so it is never restarted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd.Context(), func(ctx context.Context, a *app.Application) int {
			return a.RunAbandon(ctx, args[0])
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&inputDir, "input-dir", "", "directory holding <NAME>.txt files (default: ingest.input_dir)")
	generateCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default: ingest.generate.output_dir)")
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: ingest.generate.seed)")
	verifyCmd.Flags().IntVar(&maxErrors, "max-errors", 20, "number of failures to print, -1 for all")
	showCmd.Flags().IntVar(&maxErrors, "max-errors", 20, "number of parse errors to print, -1 for all")

	rootCmd.AddCommand(ingestCmd, generateCmd, verifyCmd, layoutsCmd, showCmd, restartCmd, abandonCmd)
}

// withApp はバッチ基盤を初期化して fn を実行し、終了時にリソースを解放します。
func withApp(ctx context.Context, fn func(context.Context, *app.Application) int) {
	a, err := app.Setup(ctx, envFilePath(), embeddedConfig)
	if err != nil {
		logger.Errorf("%v", err)
		exitCode = 1
		return
	}
	defer a.Close()
	exitCode = fn(ctx, a)
}

func envFilePath() string {
	if p := os.Getenv("ENV_FILE_PATH"); p != "" {
		return p
	}
	return ".env"
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C などで実行中のジョブを STOPPED として終了させる
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warnf("シグナル '%v' を受信しました。ジョブの停止を試みます...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		exitCode = 1
	}
	logger.Sync()
	cancel()
	os.Exit(exitCode)
}
