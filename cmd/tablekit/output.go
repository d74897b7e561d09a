package main

import (
	"encoding/json"
	"io"

	"tablekit/internal/table"

	"github.com/olekukonko/tablewriter"
)

func renderTable(w io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
}

// renderRows prints rows as form text: nulls are blank and blobs show
// their size.
func renderRows(w io.Writer, cols []table.Column, rows []table.Row) {
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name()
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Display()
	}
	renderTable(w, header, out)
}

// writeJSONLines prints one object per row with keys in column order.
func writeJSONLines(w io.Writer, rows []table.Row) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r.Dict()); err != nil {
			return err
		}
	}
	return nil
}
