package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/okian/churnlens/internal/domain/model"
)

var (
	errorColor   = lipgloss.Color("#FF6B6B")
	warningColor = lipgloss.Color("#FFE66D")
	successColor = lipgloss.Color("#4ECDC4")
	infoColor    = lipgloss.Color("#95E1D3")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(subtleColor).Width(24)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#333")).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	toneStyles = map[string]lipgloss.Style{
		model.ToneError:   lipgloss.NewStyle().Foreground(errorColor),
		model.ToneWarning: lipgloss.NewStyle().Foreground(warningColor),
		model.ToneSuccess: lipgloss.NewStyle().Foreground(successColor),
		model.ToneInfo:    lipgloss.NewStyle().Foreground(infoColor),
	}
)

func tone(t string) lipgloss.Style {
	if s, ok := toneStyles[t]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// RenderSummary returns the terminal summary of ev with the top accounts.
func RenderSummary(ev *Evaluation, top int) string {
	if ev == nil {
		return ""
	}
	if top < 1 {
		top = DefaultTop
	}

	kv := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
	}
	tiles := lipgloss.JoinVertical(lipgloss.Left,
		kv("Accounts", fmt.Sprint(ev.KPIs.Accounts)),
		kv("Total ARR", money(ev.KPIs.TotalARR)),
		kv("Revenue at risk", money(ev.KPIs.TotalRevenueAtRisk)),
		kv("Exposure", pct(ev.Summary.ExposureRatio)),
		kv("Churn-risk accounts", fmt.Sprint(ev.KPIs.ChurnRiskAccounts())),
		kv("Growth opportunities", fmt.Sprint(ev.KPIs.GrowthOpportunities())),
	)

	var cats []string
	for _, c := range model.Categories() {
		n := ev.KPIs.CountByCategory[c]
		if n == 0 {
			continue
		}
		cats = append(cats, fmt.Sprintf("%s %s", tone(c.Tone()).Render(c.Label()), valueStyle.Render(fmt.Sprint(n))))
	}

	rows := []string{headerStyle.Render(fmt.Sprintf("%-5s %-20s %14s  %s", "Rank", "Account", "At risk", "Action"))}
	for _, a := range ev.Top(top) {
		act := a.Classification.RecommendedAction
		rows = append(rows, fmt.Sprintf("%-5d %-20s %14s  %s",
			a.Rank, truncate(a.Record.AccountID, 20), money(a.Classification.RevenueAtRisk), tone(act.Tone()).Render(act.Label())))
	}

	sections := []string{
		titleStyle.Render("Revenue Risk Summary"),
		boxStyle.Render(tiles),
		strings.Join(cats, "\n"),
		"",
		strings.Join(rows, "\n"),
	}
	if q := qualityLine(ev); q != "" {
		sections = append(sections, "", tone(model.ToneWarning).Render(q))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderVerification returns the terminal view of v.
func RenderVerification(v *Verification) string {
	if v == nil {
		return ""
	}
	lines := []string{titleStyle.Render("Verification against " + v.BaseURL)}
	for _, c := range v.Checks {
		if c.OK {
			lines = append(lines, tone(model.ToneSuccess).Render("✓ "+c.Name))
			continue
		}
		lines = append(lines, tone(model.ToneError).Render("✗ "+c.Name+": "+c.Detail))
	}

	status := tone(model.ToneSuccess).Render(fmt.Sprintf("%d checks passed", len(v.Checks)))
	if failed := len(v.Failed()); failed > 0 {
		status = tone(model.ToneError).Render(fmt.Sprintf("%d of %d checks failed", failed, len(v.Checks)))
	}
	lines = append(lines, "", status)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func qualityLine(ev *Evaluation) string {
	var parts []string
	if n := len(ev.Rejected); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected rows", n))
	}
	if n := len(ev.Duplicates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate ids", n))
	}
	if n := ev.Summary.AnomalousAccounts; n > 0 {
		parts = append(parts, fmt.Sprintf("%d accounts with unknown values", n))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
