package main

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/recommend"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows under headers. decorate selects rounded box
// drawing; otherwise plain ASCII is used for pipes and files.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment, decorate bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if decorate {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
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

// renderResult draws the two-column view of a recommendation, including the
// error and "no artists" sentinel rows.
func renderResult(res *recommend.Result, urls, decorate bool) string {
	view := res.Rows()
	headers := []string{"Artist", res.Label()}
	aligns := []columnAlignment{alignLeft, alignRight}
	if urls {
		headers = append(headers, "URL")
		aligns = append(aligns, alignLeft)
	}

	rows := make([][]string, len(view.Artists))
	for i := range view.Artists {
		rows[i] = []string{view.Artists[i], view.Attributes[i]}
		if urls && res.Error == "" && i < len(res.Matches) {
			rows[i] = append(rows[i], res.Matches[i].URL)
		}
	}
	return renderTable(headers, rows, aligns, decorate)
}

func renderSimilar(names []string, urls, decorate bool) string {
	headers := []string{"#", "Artist"}
	aligns := []columnAlignment{alignRight, alignLeft}
	if urls {
		headers = append(headers, "URL")
		aligns = append(aligns, alignLeft)
	}

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{strconv.Itoa(i + 1), name}
		if urls {
			rows[i] = append(rows[i], lastfm.PageURL(name))
		}
	}
	return renderTable(headers, rows, aligns, decorate)
}

func shouldDecorate(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
