package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/rules"
	"github.com/okian/churnlens/pkg/logger"
)

const markdownTemplate = `# Revenue Risk Report

- **Source:** {{ .Source }}
- **Evaluated:** {{ .EvaluatedAt.Format "2006-01-02 15:04 MST" }}
- **Strategy:** {{ .Strategy }}

## Portfolio

| Accounts | Total ARR | Revenue at risk | Exposure | Churn-risk accounts | Growth opportunities |
|---:|---:|---:|---:|---:|---:|
| {{ .KPIs.Accounts }} | {{ money .KPIs.TotalARR }} | {{ money .KPIs.TotalRevenueAtRisk }} | {{ pct .Summary.ExposureRatio }} | {{ .KPIs.ChurnRiskAccounts }} | {{ .KPIs.GrowthOpportunities }} |

- Median ARR: {{ money .Summary.MedianARR }}
- Mean revenue at risk: {{ money .Summary.MeanRevenueAtRisk }} (p90 {{ money .Summary.P90RevenueAtRisk }})
{{- if .Summary.AccountsWithUsage }}
- Mean usage trend: {{ printf "%.2f" .Summary.MeanUsageTrend }} over {{ .Summary.AccountsWithUsage }} accounts
{{- end }}

## Categories

| Category | Accounts | Recommended action |
|---|---:|---|
{{- range .Categories }}
| {{ .Label }} | {{ .Count }} | {{ .Action }} |
{{- end }}

## Top {{ len .Leaders }} accounts at risk

| Rank | Account | ARR | Category | Revenue at risk | Action |
|---:|---|---:|---|---:|---|
{{- range .Leaders }}
| {{ .Rank }} | {{ .Record.AccountID }} | {{ money .Record.ARR }} | {{ .Classification.Category.Label }} | {{ money .Classification.RevenueAtRisk }} | {{ .Classification.RecommendedAction.Label }} |
{{- end }}
{{- if or .Rejected .Duplicates .Anomalous }}

## Data quality
{{- range .Rejected }}
- Rejected line {{ .Line }}: {{ .Error }}
{{- end }}
{{- range .Duplicates }}
- Duplicate account {{ .AccountID }} on {{ .Count }} rows{{ if .Lines }} (lines {{ lines .Lines }}){{ end }}
{{- end }}
{{- range .Anomalous }}
- {{ .Record.AccountID }}:{{ range .Classification.Anomalies }} {{ .Field }}={{ printf "%q" .Value }}{{ end }}
{{- end }}
{{- end }}
`

var markdown = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": money,
	"pct":   pct,
	"lines": joinLines,
}).Parse(markdownTemplate))

type categoryRow struct {
	Label  string
	Count  int
	Action string
}

type markdownView struct {
	*Evaluation
	Categories []categoryRow
	Leaders    []repository.Ranked
	Anomalous  []model.ClassifiedAccount
}

// RenderMarkdown writes the markdown report for ev, listing top accounts.
func RenderMarkdown(w io.Writer, ev *Evaluation, top int) error {
	if ev == nil || len(ev.Accounts) == 0 {
		return ErrNoAccounts
	}
	if top < 1 {
		top = DefaultTop
	}

	view := markdownView{
		Evaluation: ev,
		Categories: categoryRows(ev),
		Leaders:    ev.Top(top),
		Anomalous:  anomalous(ev),
	}
	if err := markdown.Execute(w, view); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// WriteMarkdown renders the report into path, creating parent directories.
func WriteMarkdown(ctx context.Context, path string, ev *Evaluation, top int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if err := RenderMarkdown(file, ev, top); err != nil {
		return err
	}
	logger.Get().Info(ctx, "report written", logger.String("path", path), logger.Int("accounts", len(ev.Accounts)))
	return nil
}

// categoryRows lists every category in cascade order, including empty ones.
func categoryRows(ev *Evaluation) []categoryRow {
	table := rules.New().CategoryAction
	cats := model.Categories()
	rows := make([]categoryRow, 0, len(cats))
	for _, c := range cats {
		action, _ := table.Evaluate(c)
		rows = append(rows, categoryRow{
			Label:  c.Label(),
			Count:  ev.KPIs.CountByCategory[c],
			Action: action.Label(),
		})
	}
	return rows
}

func anomalous(ev *Evaluation) []model.ClassifiedAccount {
	var out []model.ClassifiedAccount
	for i := range ev.Accounts {
		if len(ev.Accounts[i].Classification.Anomalies) > 0 {
			out = append(out, ev.Accounts[i].ClassifiedAccount)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.AccountID < out[j].Record.AccountID })
	return out
}

func money(v float64) string {
	return "$" + humanize.Commaf(math.Round(v))
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ", ")
}
