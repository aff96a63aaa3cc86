// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Format identifies the source document format handled by the loader.
type Format string

const (
	FormatText Format = "text"
	FormatDocx Format = "docx"
	FormatPDF  Format = "pdf"
)

// RawDocument is the full extracted text of one source file. It is built
// once per run by the loader and never mutated afterwards.
type RawDocument struct {
	// Path is the source file path the text was extracted from.
	Path string `json:"path" yaml:"path"`

	// Format is the detected or declared source format.
	Format Format `json:"format" yaml:"format"`

	// Text is the extracted document text, newline-separated.
	Text string `json:"text" yaml:"text"`
}

// ArticleBlock is one raw article span produced by the segmenter: the
// marker line that opened it plus everything up to the next marker.
// Block order is document order and is semantically meaningful.
type ArticleBlock struct {
	// Heading is the detected article marker (e.g. "第一条").
	Heading string `json:"heading" yaml:"heading"`

	// Body is the raw text between this marker and the next one,
	// including any text that followed the marker on its own line.
	Body string `json:"body" yaml:"body"`
}

// Article is the final normalized record emitted for each block. The
// normalizer produces exactly one Article per ArticleBlock.
type Article struct {
	// ArticleNumber is the canonical article marker.
	ArticleNumber string `json:"article_number" yaml:"article_number"`

	// Content is the cleaned article body.
	Content string `json:"content" yaml:"content"`
}

// DocumentContext carries the front-matter lines of a statute (law name,
// document number, effective date) that precede the first article. It is
// passed to the LLM backend so normalization sees the enclosing document.
type DocumentContext struct {
	// Lines are the recognized context lines in document order.
	Lines []string `json:"lines" yaml:"lines"`
}

// String joins the context lines for inclusion in a prompt. An empty
// context renders as the empty string.
func (c DocumentContext) String() string {
	out := ""
	for i, l := range c.Lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
