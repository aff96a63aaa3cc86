// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits statute text into ordered article blocks.
package segment

import (
	"regexp"
	"strings"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// markerRe matches an article marker anchored at line start: 第 + licensed
// numerals + 条, optionally followed by inline body text on the same line.
// Anchoring to line start keeps quoted cross-references (依照本法第十条...)
// from opening a spurious block.
var markerRe = regexp.MustCompile(`^(第[零一二三四五六七八九十百千\d]+条)[\s　]*(.*)$`)

// contextKeywords marks front-matter lines worth carrying into the
// document context: the law title and publication metadata.
var contextKeywords = []string{
	"中华人民共和国",
	"发文机关",
	"发布日期",
	"生效日期",
	"时效性",
	"文号",
	"主席令",
	"国务院令",
	"全国人民代表大会",
}

// maxContextLines bounds how far into the document Context scans for
// front matter before giving up.
const maxContextLines = 20

// IsMarker reports whether the line opens a new article.
func IsMarker(line string) bool {
	return markerRe.MatchString(strings.TrimSpace(line))
}

// Split scans text line by line and returns one ArticleBlock per article
// marker, in document order. Text before the first marker is front matter
// and is discarded. A document with no markers yields a nil slice.
func Split(text string) []types.ArticleBlock {
	var blocks []types.ArticleBlock
	currentHeading := ""
	var bodyLines []string

	flush := func() {
		if currentHeading == "" {
			return
		}
		blocks = append(blocks, types.ArticleBlock{
			Heading: currentHeading,
			Body:    strings.Join(bodyLines, "\n"),
		})
		bodyLines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := markerRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			currentHeading = m[1]
			if rest := strings.TrimSpace(m[2]); rest != "" {
				bodyLines = append(bodyLines, rest)
			}
			continue
		}

		if currentHeading != "" {
			bodyLines = append(bodyLines, trimmed)
		}
	}

	flush()
	return blocks
}

// Context collects front-matter lines preceding the first article marker
// that look like document metadata: the law title, issuing body, document
// number, and effective-date lines. Scanning stops at the first marker or
// after maxContextLines non-empty lines.
func Context(text string) types.DocumentContext {
	var ctx types.DocumentContext
	seen := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if markerRe.MatchString(trimmed) {
			break
		}
		seen++
		if seen > maxContextLines {
			break
		}

		// Titles are sometimes letter-spaced (时 效 性); match with
		// spaces removed as well.
		compact := strings.ReplaceAll(trimmed, " ", "")
		for _, kw := range contextKeywords {
			if strings.Contains(trimmed, kw) || strings.Contains(compact, kw) {
				ctx.Lines = append(ctx.Lines, trimmed)
				break
			}
		}
	}

	return ctx
}
