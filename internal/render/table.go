package render

import (
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/23skdu/longbow-lens/internal/gguf"
	"github.com/23skdu/longbow-lens/internal/records"
)

// tfprint writes one table. Columns listed in right are right-aligned.
func tfprint(w io.Writer, border bool, header table.Row, body []table.Row, right ...int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(header)
	tw.AppendRows(body)

	cfgs := make([]table.ColumnConfig, len(header))
	for i := range cfgs {
		cfgs[i].Number = i + 1
		cfgs[i].Align = text.AlignLeft
		cfgs[i].AlignHeader = text.AlignCenter
	}
	for _, c := range right {
		cfgs[c-1].Align = text.AlignRight
	}
	tw.SetColumnConfigs(cfgs)

	{
		tw.Style().Options.DrawBorder = border
		tw.Style().Options.SeparateHeader = true
		tw.Style().Options.SeparateColumns = border
		tw.Style().Options.SeparateRows = false
	}
	tw.Render()
}

// TensorTable lists tensors with a totals footer.
func TensorTable(w io.Writer, tensors []records.Tensor, border bool) {
	body := make([]table.Row, 0, len(tensors)+1)
	var params, size uint64
	for _, t := range tensors {
		body = append(body, table.Row{t.Name, t.DType, Shape(t.Shape), Count(t.Elements), Size(t.Size)})
		params += t.Elements
		size += t.Size
	}
	body = append(body, table.Row{"TOTAL", "", "", Params(params), Size(size)})
	tfprint(w, border, table.Row{"Name", "Type", "Shape", "Elements", "Size"}, body, 4, 5)
}

func MetadataTable(w io.Writer, md []records.Metadata, border bool) {
	body := make([]table.Row, 0, len(md))
	for _, m := range md {
		body = append(body, table.Row{m.Key, m.Type, m.Value})
	}
	tfprint(w, border, table.Row{"Key", "Type", "Value"}, body)
}

// InfoTable prints the summary of one GGUF file.
func InfoTable(w io.Writer, path string, s gguf.Summary, border bool) {
	types := make([]gguf.GGMLType, 0, len(s.TypeCounts))
	for t := range s.TypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String() + ":" + Count(uint64(s.TypeCounts[t]))
	}

	body := []table.Row{
		{"File", path},
		{"Version", s.Version},
		{"Architecture", s.Architecture},
		{"Name", s.ModelName},
		{"Context Length", Count(s.ContextLength)},
		{"Embedding Length", Count(s.EmbeddingLength)},
		{"Blocks", s.BlockCount},
		{"Heads (KV)", Count(s.HeadCount) + " (" + Count(s.HeadCountKV) + ")"},
		{"Experts", s.ExpertCount},
		{"Alignment", s.Alignment},
		{"Metadata Entries", s.MetadataCount},
		{"Tensors", Count(uint64(s.TensorCount)) + " [" + strings.Join(parts, " ") + "]"},
		{"Parameters", Params(s.TotalParameters)},
		{"Size", Size(s.TotalSize)},
		{"BPW", BPW(s.BitsPerWeight())},
		{"Dominant Type", s.DominantType.String()},
	}
	tfprint(w, border, table.Row{"Field", "Value"}, body)
}
