package summarizer

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/newsrag-go/internal/news"
)

// Generation temperatures per prompt.
const (
	textTemperature   float32 = 0
	urlTemperature    float32 = 0.7
	expertTemperature float32 = 0.7
)

var (
	// textTemplate summarises an article body in three sentences.
	textTemplate = prompt.FromMessages(schema.FString,
		schema.UserMessage("다음 뉴스 기사 내용을 세 문장으로 요약해줘:\n\n{text}"),
	)

	// urlTemplate summarises paragraph text scraped from a page.
	urlTemplate = prompt.FromMessages(schema.FString,
		schema.UserMessage("Write a concise summary of the following:\n\n\n\"{text}\"\n\n\nCONCISE SUMMARY:"),
	)

	// expertTemplate answers a question from numbered article summaries.
	expertTemplate = prompt.FromMessages(schema.FString,
		schema.UserMessage(`당신은 뉴스 분야의 전문가입니다. 사용자의 질문에 대해 아래 기사 요약들을 참고하여, 정중하고 신뢰감 있게 답변해 주세요.

질문: {question}

다음은 관련 뉴스 기사 요약입니다:
{summaries}

위 기사들을 참고해 질문에 답해주세요.`),
	)
)

// formatReferences renders refs as numbered blocks separated by a blank line:
//
//	1. 제목: ...
//	요약: ...
//	링크: ...
func formatReferences(refs []news.SummaryItem) string {
	blocks := make([]string, len(refs))
	for i, r := range refs {
		blocks[i] = fmt.Sprintf("%d. 제목: %s\n요약: %s\n링크: %s", i+1, r.Title, r.Summary, r.URL)
	}
	return strings.Join(blocks, "\n\n")
}
