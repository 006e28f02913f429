package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	appJob "github.com/Vignesh4110/finance-modernization/example/as400/job"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	jobrepo "github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// newTable は numericCols の列を右寄せにした表を作成します。
func newTable(headers []string, numericCols ...int) *table.Table {
	numeric := make(map[int]bool, len(numericCols))
	for _, c := range numericCols {
		numeric[c] = true
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numStyle
			default:
				return cellStyle
			}
		})
}

// renderLayout はレイアウトのカラム定義表 (コピーブック相当) を返します。
func renderLayout(l *fixedwidth.RecordLayout) string {
	t := newTable([]string{"AS400", "Column", "Start", "End", "Len", "Type", "Dec"}, 2, 3, 4, 6)
	for _, c := range l.Columns() {
		dec := ""
		if c.Kind == fixedwidth.KindScaledDecimal {
			dec = strconv.Itoa(c.Scale)
		}
		t.Row(c.SourceName, c.OutputName, strconv.Itoa(c.Start), strconv.Itoa(c.End), strconv.Itoa(c.Width), c.Kind.String(), dec)
	}
	title := titleStyle.Render(fmt.Sprintf("%s - %s", l.Name, l.Description))
	footer := mutedStyle.Render(fmt.Sprintf("record length %d, %d fields", l.RecordLength, l.FieldCount()))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.String(), footer)
}

func renderVerify(w io.Writer, results []VerifyResult, maxErrors int) {
	if len(results) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no layout files found"))
		return
	}
	t := newTable([]string{"Layout", "File", "Parsed", "Rejected", "Field errors", "Checked", "Non-canonical", "Not fixed"}, 2, 3, 4, 5, 6, 7)
	for _, r := range results {
		t.Row(r.Layout, r.File,
			strconv.Itoa(r.Stats.RecordsParsed), strconv.Itoa(r.Stats.RecordsFailed), strconv.Itoa(r.Stats.FieldErrors),
			strconv.Itoa(r.Checked), strconv.Itoa(r.NonCanonical), strconv.Itoa(len(r.Failures)))
	}
	fmt.Fprintln(w, t.String())

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("  %s: %v", r.File, r.Err)))
		}
	}
	shown := 0
	for _, r := range results {
		for _, f := range r.Failures {
			if maxErrors >= 0 && shown >= maxErrors {
				return
			}
			fmt.Fprintln(w, errStyle.Render("  "+f.Error()))
			shown++
		}
	}
}

// printIngestSummary は ingestJob の集計を表示します。
func printIngestSummary(w io.Writer, je *core.JobExecution) {
	ec := je.ExecutionContext
	get := func(key string) string {
		n, _ := ec.GetInt(key)
		return strconv.Itoa(n)
	}
	loadID, _ := ec.GetString(appJob.LoadIDKey)

	t := newTable([]string{"Files", "Parsed", "Rejected", "Field errors", "Padded", "Errors saved"}, 0, 1, 2, 3, 4, 5)
	t.Row(get(appJob.FilesProcessedKey), get(appJob.RecordsParsedKey), get(appJob.RecordsFailedKey),
		get(appJob.FieldErrorsKey), get(appJob.PaddedLinesKey), get(appJob.ErrorsPersistedKey))

	title := titleStyle.Render(fmt.Sprintf("%s %s (execution %s, load %s)", je.JobName, je.Status, je.ID, loadID))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, title, t.String()))
	if missing := missingFiles(ec); len(missing) > 0 {
		fmt.Fprintln(w, errStyle.Render("missing: "+strings.Join(missing, ", ")))
	}
}

// missingFiles は JSON 復元後の []interface{} にも対応します。
func missingFiles(ec core.ExecutionContext) []string {
	switch v := ec.Get(appJob.FilesMissingKey).(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, fmt.Sprint(s))
		}
		return out
	default:
		return nil
	}
}

func renderExecution(w io.Writer, je *core.JobExecution, pes []jobrepo.ParseError, maxErrors int) {
	title := titleStyle.Render(fmt.Sprintf("%s %s / %s", je.JobName, je.Status, je.ExitStatus))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("execution %s, instance %s, started %s, ended %s",
		je.ID, je.JobInstanceID, formatTime(je), formatEnd(je))))

	steps := newTable([]string{"Step", "Status", "Read", "Write", "Filter", "Skip", "Commit", "Rollback"}, 2, 3, 4, 5, 6, 7)
	for _, se := range je.StepExecutions {
		steps.Row(se.StepName, string(se.Status),
			strconv.Itoa(se.ReadCount), strconv.Itoa(se.WriteCount), strconv.Itoa(se.FilterCount),
			strconv.Itoa(se.SkipCount()), strconv.Itoa(se.CommitCount), strconv.Itoa(se.RollbackCount))
	}
	fmt.Fprintln(w, steps.String())

	if je.JobName == appJob.IngestJobName {
		printIngestSummary(w, je)
	}
	if len(pes) == 0 {
		return
	}
	errs := newTable([]string{"Layout", "File", "Line", "Field", "Raw", "Cause"}, 2)
	for i, pe := range pes {
		if maxErrors >= 0 && i >= maxErrors {
			break
		}
		errs.Row(pe.LayoutName, pe.FileName, strconv.Itoa(pe.LineNumber), pe.SourceName, strconv.Quote(pe.RawValue), pe.Cause)
	}
	fmt.Fprintln(w, errs.String())
	if maxErrors >= 0 && len(pes) > maxErrors {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("... %d more", len(pes)-maxErrors)))
	}
}

func formatTime(je *core.JobExecution) string {
	if je.StartTime.IsZero() {
		return "-"
	}
	return je.StartTime.UTC().Format("2006-01-02 15:04:05")
}

func formatEnd(je *core.JobExecution) string {
	if je.EndTime.IsZero() {
		return "-"
	}
	return je.EndTime.UTC().Format("2006-01-02 15:04:05")
}
