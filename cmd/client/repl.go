package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/tuannm99/pggateway"
)

// statementComplete reports a terminating ';' outside single quotes.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		switch {
		case r == '\'':
			// '' inside a literal toggles twice
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}

var rowKeywords = map[string]bool{
	"SELECT": true,
	"WITH":   true,
	"VALUES": true,
	"SHOW":   true,
	"TABLE":  true,
}

// returnsRow picks fetchrow over execute for stmt.
func returnsRow(stmt string) bool {
	fields := strings.Fields(strings.ToUpper(stmt))
	if len(fields) == 0 {
		return false
	}
	first := strings.TrimRight(fields[0], ";")
	if rowKeywords[first] {
		return true
	}
	for _, f := range fields[1:] {
		if strings.TrimRight(f, ";") == "RETURNING" {
			return true
		}
	}
	return false
}

func isMetaCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

const helpText = `meta commands:
  \q | quit | exit       quit
  \history               print history
  \help                  show help

sql:
  end statements with ';', multiline input waits for it
  SELECT, WITH, VALUES, SHOW, TABLE and ... RETURNING fetch exactly one row
  anything else is executed and reports the affected row count`

func printRow(w io.Writer, row *pggateway.Row) error {
	vals, err := row.Values()
	if err != nil {
		return err
	}

	cells := make([]string, len(vals))
	for i, v := range vals {
		cells[i] = formatValue(v)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(row.Keys())
	tw.Append(cells)
	tw.Render()

	fmt.Fprintln(w, "(1 row)")
	return nil
}

func printAffected(w io.Writer, n int64) {
	fmt.Fprintf(w, "OK (%d affected)\n", n)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case fmt.Stringer:
		return x.String()
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", x)
	}
}
