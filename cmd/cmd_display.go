package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// useJSON - JSON wenn per --format verlangt oder stdout kein Terminal ist
func useJSON(cmd *cobra.Command) (bool, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return true, nil
	case "table":
		return false, nil
	case "":
		return !term.IsTerminal(int(os.Stdout.Fd())), nil
	}
	return false, fmt.Errorf("unknown format %q", format)
}

// writeJSON - Schreibt v eingerueckt als JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable - Schreibt eine Tabelle mit festen Spalten ohne Rahmen
func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// formatFloats - Kompakte Darstellung eines Vektors, gekuerzt nach limit Werten
func formatFloats(xs []float64, limit int) string {
	if xs == nil {
		return "-"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range xs {
		if i == limit {
			fmt.Fprintf(&sb, " ... (%d)", len(xs))
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(x, 'g', 4, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

// formatOptional - Zahl oder "-" wenn nicht vorhanden
func formatOptional(x *float64) string {
	if x == nil {
		return "-"
	}
	return strconv.FormatFloat(*x, 'g', 6, 64)
}
