// Package render formats records and trees for terminals: sizes,
// parameter counts, styled tree lines, tables and the interactive browser.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
)

// Size renders a byte count with binary units, e.g. "4.5MiB".
func Size(n uint64) string {
	return units.BytesSize(float64(n))
}

// Params renders a parameter count the way model cards do: "7.24B",
// "125.03M", "512".
func Params(n uint64) string {
	if n < 1000 {
		return strconv.FormatUint(n, 10)
	}
	v, prefix := humanize.ComputeSI(float64(n))
	switch prefix {
	case "k":
		prefix = "K"
	case "G":
		prefix = "B"
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + prefix
}

// Count groups digits, e.g. "131,072,000".
func Count(n uint64) string {
	return humanize.Comma(int64(n))
}

// Shape renders dimensions as "[4096, 32000]"; a scalar is "[]".
func Shape(dims []uint64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, d := range dims {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatUint(d, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}

// BPW renders bits per weight with two decimals.
func BPW(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
