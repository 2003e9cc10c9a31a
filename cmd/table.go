package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

var requestHeaders = []string{"#", "ID", "Status", "Priority", "Title", "Artist", "Requester", "Requested"}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func requestRows(requests []models.SongRequest) [][]string {
	rows := make([][]string, len(requests))
	for i, r := range requests {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			r.ID,
			string(r.Status),
			strconv.Itoa(r.Priority),
			r.SongTitle,
			r.Artist,
			r.RequesterName,
			shared.TimeAgo(r.CreatedAt),
		}
	}
	return rows
}

// renderRequests draws a table for terminals and tab-separated lines otherwise, so output pipes cleanly.
func renderRequests(requests []models.SongRequest, tty bool) string {
	rows := requestRows(requests)
	if tty {
		aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight}
		return renderTable(requestHeaders, rows, aligns) + "\n"
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row[1:], "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
