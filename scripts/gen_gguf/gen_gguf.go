// Command gen_gguf writes a small llama-shaped GGUF header for manual
// testing of lens. Tensor payloads are not written.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/23skdu/longbow-lens/internal/gguf"
)

func main() {
	out := pflag.StringP("output", "o", "test.gguf", "output file")
	blocks := pflag.Int("blocks", 4, "number of transformer blocks")
	embd := pflag.Uint64("embd", 256, "embedding length")
	vocab := pflag.Uint64("vocab", 1024, "vocabulary size")
	pflag.Parse()

	f := build(*blocks, *embd, *vocab)
	data, err := gguf.Encode(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %d tensors, %d metadata entries, %d bytes\n", *out, len(f.Tensors), len(f.Metadata), len(data))
}

func build(blocks int, embd, vocab uint64) *gguf.File {
	tokens := make([]gguf.Value, 0, 8)
	for i := 0; i < 8; i++ {
		tokens = append(tokens, gguf.String(fmt.Sprintf("<tok%d>", i)))
	}

	f := &gguf.File{
		Metadata: []gguf.KV{
			{Key: "general.architecture", Value: gguf.String("llama")},
			{Key: "general.name", Value: gguf.String("lens-fixture")},
			{Key: "general.alignment", Value: gguf.Uint32(gguf.DefaultAlignment)},
			{Key: "llama.context_length", Value: gguf.Uint32(2048)},
			{Key: "llama.embedding_length", Value: gguf.Uint32(uint32(embd))},
			{Key: "llama.block_count", Value: gguf.Uint32(uint32(blocks))},
			{Key: "llama.attention.head_count", Value: gguf.Uint32(8)},
			{Key: "llama.attention.head_count_kv", Value: gguf.Uint32(2)},
			{Key: "llama.rope.freq_base", Value: gguf.Float32(10000)},
			{Key: "tokenizer.ggml.tokens", Value: gguf.Array(gguf.ValueTypeString, tokens...)},
		},
	}

	var offset uint64
	add := func(name string, typ gguf.GGMLType, dims ...uint64) {
		t := gguf.TensorInfo{Name: name, Dimensions: dims, Type: typ, Offset: offset}
		f.Tensors = append(f.Tensors, t)
		offset += (t.SizeBytes() + gguf.DefaultAlignment - 1) / gguf.DefaultAlignment * gguf.DefaultAlignment
	}

	add("token_embd.weight", gguf.GGMLTypeQ4_K, embd, vocab)
	for b := 0; b < blocks; b++ {
		p := fmt.Sprintf("blk.%d.", b)
		add(p+"attn_norm.weight", gguf.GGMLTypeF32, embd)
		add(p+"attn_q.weight", gguf.GGMLTypeQ4_K, embd, embd)
		add(p+"attn_k.weight", gguf.GGMLTypeQ4_K, embd, embd/4)
		add(p+"attn_v.weight", gguf.GGMLTypeQ6_K, embd, embd/4)
		add(p+"attn_output.weight", gguf.GGMLTypeQ4_K, embd, embd)
		add(p+"ffn_norm.weight", gguf.GGMLTypeF32, embd)
		add(p+"ffn_gate.weight", gguf.GGMLTypeQ4_K, embd, embd*4)
		add(p+"ffn_up.weight", gguf.GGMLTypeQ4_K, embd, embd*4)
		add(p+"ffn_down.weight", gguf.GGMLTypeQ6_K, embd*4, embd)
	}
	add("output_norm.weight", gguf.GGMLTypeF32, embd)
	add("output.weight", gguf.GGMLTypeQ6_K, embd, vocab)
	return f
}
