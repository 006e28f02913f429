package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	appJob "github.com/Vignesh4110/finance-modernization/example/as400/job"
	tasklet "github.com/Vignesh4110/finance-modernization/example/as400/step/tasklet"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth/layouts"
)

// RunIngest は ingestJob を実行します。inputDir が空の場合は設定の ingest.input_dir を使います。
func (a *Application) RunIngest(ctx context.Context, inputDir string) int {
	params := core.NewJobParameters()
	if inputDir != "" {
		params.Put(appJob.InputDirParam, inputDir)
	}
	je, code := a.launch(ctx, appJob.IngestJobName, params)
	if je != nil {
		printIngestSummary(os.Stdout, je)
	}
	return code
}

// RunGenerate は generateJob を実行します。seed が nil の場合は設定の値を使います。
func (a *Application) RunGenerate(ctx context.Context, outputDir string, seed *int64) int {
	params := core.NewJobParameters()
	if outputDir != "" {
		params.Put(appJob.OutputDirParam, outputDir)
	}
	if seed != nil {
		params.Put(appJob.SeedParam, int(*seed))
	}
	je, code := a.launch(ctx, appJob.GenerateJobName, params)
	if je != nil && code == 0 {
		dir, _ := je.ExecutionContext.GetString(tasklet.OutputDirKey)
		fmt.Fprintf(os.Stdout, "generated into %s\n", dir)
		for name := range a.registry.Names() {
			n, _ := je.ExecutionContext.GetInt(tasklet.RecordsKeyPrefix + name)
			fmt.Fprintf(os.Stdout, "  %-8s %8d records\n", name, n)
		}
	}
	return code
}

// RunRestart は FAILED または STOPPED の JobExecution を再実行します。
func (a *Application) RunRestart(ctx context.Context, executionID string) int {
	je, err := a.operator.Restart(ctx, executionID)
	jobName := "restart"
	if je != nil {
		jobName = je.JobName
	}
	code := handleApplicationError(err, je, jobName)
	if je != nil && je.JobName == appJob.IngestJobName {
		printIngestSummary(os.Stdout, je)
	}
	return code
}

// RunAbandon は JobExecution を ABANDONED にします。
func (a *Application) RunAbandon(ctx context.Context, executionID string) int {
	if err := a.operator.Abandon(ctx, executionID); err != nil {
		logger.Errorf("JobExecution (ID: %s) を放棄できませんでした: %v", executionID, err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "%s abandoned\n", executionID)
	return 0
}

// RunShow は JobExecution と記録された取込エラーを表示します。
func (a *Application) RunShow(ctx context.Context, executionID string, maxErrors int) int {
	je, err := a.operator.GetJobExecution(ctx, executionID)
	if err != nil {
		logger.Errorf("JobExecution (ID: %s) を取得できませんでした: %v", executionID, err)
		return 1
	}
	pes, err := a.operator.GetParseErrors(ctx, executionID)
	if err != nil {
		logger.Errorf("JobExecution (ID: %s) の取込エラーを取得できませんでした: %v", executionID, err)
		return 1
	}
	renderExecution(os.Stdout, je, pes, maxErrors)
	return 0
}

// VerifyResult はファイル 1 本分の検証結果です。
type VerifyResult struct {
	Layout       string
	File         string
	Stats        fixedwidth.ParseStats
	Checked      int // 再エンコードを検査した行数
	NonCanonical int // 正規形と一致しなかった行数
	Failures     []error
	// Err はファイルを読み込めなかった場合のエラーです。他のファイルの検証は続けます。
	Err error
}

// Verify は dir の各ファイルをデコードし、エラーのない行が再エンコードの不動点になることを確かめます。
// 読み込めないファイルは VerifyResult.Err に記録して次のファイルへ進みます。データベースは使いません。
func Verify(ctx context.Context, dir string, registry *fixedwidth.Registry) ([]VerifyResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			byName[strings.ToUpper(e.Name())] = e.Name()
		}
	}

	var results []VerifyResult
	for layout := range registry.All() {
		name, ok := byName[strings.ToUpper(layout.Name)+".TXT"]
		if !ok {
			continue
		}
		res, err := verifyFile(ctx, filepath.Join(dir, name), layout)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, ctxErr
		}
		if err != nil {
			logger.Errorf("'%s' を検証できませんでした: %v", res.File, err)
			res.Err = err
		}
		results = append(results, res)
	}
	return results, nil
}

func verifyFile(ctx context.Context, path string, layout *fixedwidth.RecordLayout) (VerifyResult, error) {
	res := VerifyResult{Layout: layout.Name, File: filepath.Base(path)}
	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	err = fixedwidth.ScanLines(f, res.File, layout, func(lr fixedwidth.LineResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Stats.Add(lr)
		if lr.Rejected() || len(lr.Errors) > 0 || lr.Padded {
			return nil
		}
		res.Checked++
		canonical, err := fixedwidth.Canonicalize(layout, lr.Text)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Errorf("%s:%d: %w", res.File, lr.Line, err))
			return nil
		}
		if canonical != lr.Text {
			res.NonCanonical++
		}
		return nil
	})
	res.Stats.FilesProcessed = 1
	return res, err
}

// RunVerify は Verify の結果を表示します。不動点にならない行があれば 1 を返します。
func RunVerify(ctx context.Context, dir string, maxErrors int) int {
	registry, err := layouts.NewRegistry()
	if err != nil {
		logger.Errorf("組み込みレイアウトの登録に失敗しました: %v", err)
		return 1
	}
	results, err := Verify(ctx, dir, registry)
	if err != nil {
		logger.Errorf("'%s' の検証に失敗しました: %v", dir, err)
		return 1
	}
	renderVerify(os.Stdout, results, maxErrors)
	for _, r := range results {
		if len(r.Failures) > 0 || r.Err != nil {
			return 1
		}
	}
	return 0
}

// RunLayouts は組み込みレイアウトのカラム定義を表示します。names が空なら全レイアウトです。
func RunLayouts(w io.Writer, names []string) int {
	registry, err := layouts.NewRegistry()
	if err != nil {
		logger.Errorf("組み込みレイアウトの登録に失敗しました: %v", err)
		return 1
	}
	var selected []*fixedwidth.RecordLayout
	if len(names) == 0 {
		for l := range registry.All() {
			selected = append(selected, l)
		}
	}
	for _, n := range names {
		l, err := registry.Get(n)
		if err != nil {
			logger.Errorf("%v", err)
			return 1
		}
		selected = append(selected, l)
	}
	for _, l := range selected {
		fmt.Fprintln(w, renderLayout(l))
	}
	return 0
}
