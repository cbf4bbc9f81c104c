package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"termlaunch/internal/history"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const historyTimeLayout = "2006-01-02 15:04:05"

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t)
}

func renderTerminals(w io.Writer, terminals []terminalRow) {
	rows := make([][]string, 0, len(terminals))
	for _, t := range terminals {
		def := ""
		if t.Default {
			def = "*"
		}
		rows = append(rows, []string{t.Name, yesNo(t.Supported), def})
	}
	renderTable(w, []string{"Terminal", "Supported", "Default"}, rows)
}

func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No launches recorded"))
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			shortID(e.ID),
			e.Time.In(time.Local).Format(historyTimeLayout),
			e.Terminal,
			e.Choice,
			e.Status,
			e.Source,
			e.Error,
		})
	}
	renderTable(w, []string{"ID", "Time", "Terminal", "Choice", "Status", "Source", "Error"}, rows)
	fmt.Fprintln(w, mutedStyle.Render(strconv.Itoa(len(entries))+" launches"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
