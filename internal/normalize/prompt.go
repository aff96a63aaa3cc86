// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// systemPrompt instructs the model to emit exactly one structured article
// record per request. The reply contract is a single JSON object with two
// string fields and nothing else.
const systemPrompt = `你是一个法律文书信息抽取助手。输入是一部法律、法规或规章中的一条条文（以"第X条"开头），可能附带文档的标题和发文信息。

请遵循以下规则：
1. 严格输出一个 JSON 对象，不要输出任何其他文字。
2. JSON 对象只包含两个字段："article_number" 和 "content"。
3. "article_number" 填写规范的条文编号（如"第六十条"），不要附加章节名或标题。
4. "content" 必须包含该条从"第X条"之后直到条文结束的所有文字，包括条款内的段落、列举、前款和后款，不要遗漏或截断。
5. "content" 内容要跟原文一致，直接复制原文，不能加入自己的理解或改写。
6. 去除页眉、页码等与条文无关的噪声文字。

示例输出：
{"article_number": "第六十一条", "content": "从事开采石油、天然气等矿产资源的企业，在开始商业性生产前发生的费用和有关固定资产的折耗、折旧方法，由国务院财政、税务主管部门另行规定。"}`

// userPromptTmpl renders the per-block user message: optional document
// context followed by the raw article text.
var userPromptTmpl = template.Must(template.New("user").Parse(`请将以下条文处理成 JSON 格式。
{{if .Context}}
文档信息：
{{.Context}}
{{end}}
条文文本：
{{.Heading}}
{{.Body}}

请直接输出 JSON，不要有其他任何解释。`))

// renderPrompt builds the user message for one article block.
func renderPrompt(ctx types.DocumentContext, block types.ArticleBlock) (string, error) {
	var buf bytes.Buffer
	err := userPromptTmpl.Execute(&buf, struct {
		Context string
		Heading string
		Body    string
	}{
		Context: ctx.String(),
		Heading: block.Heading,
		Body:    block.Body,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
