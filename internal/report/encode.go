package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the report encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat parses a --format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "msgpack":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected text|json|msgpack)", s)
	}
}

// Write encodes rep to w.
func Write(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(rep)
	default:
		return writeText(w, rep)
	}
}

// Decode reads a msgpack report written by Write.
func Decode(r io.Reader) (*Report, error) {
	var rep Report
	if err := msgpack.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}

const queryColumn = 44

func writeText(w io.Writer, rep *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s: %d conformances, %d derived\n", rep.Module, rep.Conformances, rep.Derived)
	for _, r := range rep.Results {
		status := "ok"
		if !r.Passed {
			status = "FAIL"
		}
		query := fmt.Sprintf("%s: %s.%s", r.Type, r.Protocol, r.Requirement)
		fmt.Fprintf(&b, "  %-4s %s = ", status, pad(query, queryColumn))
		switch {
		case r.Error != "":
			b.WriteString("error: " + r.Error)
		case r.Expect != "" && r.Expect != r.Witness:
			fmt.Fprintf(&b, "%s (expected %s)", r.Witness, r.Expect)
		default:
			b.WriteString(r.Witness)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d passed, %d failed\n", rep.Passed, rep.Failed)
	_, err := io.WriteString(w, b.String())
	return err
}

// pad fits s into width display columns.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}
