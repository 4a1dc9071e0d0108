package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"concierge/internal/api"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
	progressBarWidth = 24
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render() + "\n"
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

func (k statusKind) label() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) colors() text.Colors {
	switch k {
	case statusOK:
		return text.Colors{text.FgGreen}
	case statusWarn:
		return text.Colors{text.FgYellow}
	case statusError:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgBlue}
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	status := fmt.Sprintf("[%s]", kind.label())
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	if colorize {
		return kind.colors().Sprint(line)
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		colors := text.Colors{text.FgBlue, text.Bold}
		line = colors.Sprint(line)
		rule = colors.Sprint(rule)
	}
	return []string{line, rule}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func queueStatusKind(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "paused":
		return statusWarn
	case "stopped":
		return statusError
	default:
		return statusInfo
	}
}

// progressLine renders one queue state as a single line such as
// "running [#########.......] 12/30 40% now: Jane Doe".
func progressLine(state api.QueueState) string {
	filled := state.Progress * progressBarWidth / 100
	filled = max(0, min(progressBarWidth, filled))
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	line := fmt.Sprintf("%-9s [%s] %d/%d %3d%%", state.Status, bar, state.Completed, state.Total, state.Progress)
	switch {
	case len(state.CurrentProcessing) > 1:
		line += " now: " + strings.Join(state.CurrentProcessing, ", ")
	case state.Current != "":
		line += " now: " + state.Current
	}
	if n := len(state.Errors); n > 0 {
		line += fmt.Sprintf(" errors: %d", n)
	}
	return line
}

func queueStateRows(state api.QueueState) [][]string {
	rows := [][]string{
		{"Queue", state.QueueID},
		{"Status", state.Status},
		{"Progress", fmt.Sprintf("%d/%d (%d%%)", state.Completed, state.Total, state.Progress)},
		{"Next index", fmt.Sprintf("%d", state.NextIndex)},
		{"Concurrency", fmt.Sprintf("%d", state.Concurrency)},
	}
	if state.BatchID != "" {
		rows = append(rows, []string{"Batch", state.BatchID})
	}
	if len(state.CurrentProcessing) > 0 {
		rows = append(rows, []string{"Processing", strings.Join(state.CurrentProcessing, ", ")})
	}
	rows = append(rows,
		[]string{"Errors", fmt.Sprintf("%d", len(state.Errors))},
		[]string{"Started", dashIfEmpty(state.StartedAt)},
		[]string{"Updated", dashIfEmpty(state.UpdatedAt)},
		[]string{"Completed at", dashIfEmpty(state.CompletedAt)},
	)
	return rows
}

func jobErrorRows(errs []api.JobError) [][]string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{fmt.Sprintf("%d", e.GuestID), e.Name, e.Error})
	}
	return rows
}

func queueSummaryRows(queues []api.QueueSummary) [][]string {
	rows := make([][]string, 0, len(queues))
	for _, q := range queues {
		rows = append(rows, []string{
			q.QueueID,
			q.Status,
			fmt.Sprintf("%d/%d", q.Completed, q.Total),
			fmt.Sprintf("%d%%", q.Progress),
			fmt.Sprintf("%d", q.ErrorCount),
			dashIfEmpty(q.BatchID),
			dashIfEmpty(q.UpdatedAt),
		})
	}
	return rows
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
