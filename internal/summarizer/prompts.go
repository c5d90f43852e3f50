package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

const (
	Japanese = "ja"
	English  = "en"

	// DefaultMaxLength bounds the article text sent to the model, in runes.
	DefaultMaxLength = 4000
	DefaultCategory  = "Other"
)

const systemPromptJA = `あなたはAI・テクノロジーニュースの専門家です。
与えられた記事を分析し、以下の形式でJSON形式で要約を返してください。

必ず以下のJSON形式で返答してください：
{
  "summary": "記事の要約（2-3文）",
  "keyPoints": ["重要ポイント1", "重要ポイント2", "重要ポイント3"],
  "category": "カテゴリ（AI/ML/LLM/Robotics/Other）",
  "sentiment": "positive/negative/neutral"
}

注意事項：
- 要約は簡潔かつ正確に
- 技術的な内容は平易な言葉で説明
- 重要ポイントは3つまで
- JSONのみを返し、他の文章は含めない`

const systemPromptEN = `You are an AI and technology news expert.
Analyze the given article and return a summary in the following JSON format.

You must respond with only the following JSON format:
{
  "summary": "Article summary (2-3 sentences)",
  "keyPoints": ["Key point 1", "Key point 2", "Key point 3"],
  "category": "Category (AI/ML/LLM/Robotics/Other)",
  "sentiment": "positive/negative/neutral"
}

Guidelines:
- Keep summaries concise and accurate
- Explain technical content in plain language
- Maximum 3 key points
- Return only JSON, no additional text`

var (
	fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	jsonObject  = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ErrNoJSON is returned when a model answer contains no JSON object.
var ErrNoJSON = errors.New("no JSON object found in response")

// SystemPrompt returns the instructions for the given output language.
// Anything other than Japanese gets the English prompt.
func SystemPrompt(language string) string {
	if language == Japanese {
		return systemPromptJA
	}
	return systemPromptEN
}

// UserPrompt embeds the title and the article text, cut to maxLength runes.
func UserPrompt(title, content, language string, maxLength int) string {
	content = normalize.Truncate(content, maxLength)
	if language == Japanese {
		return "以下の記事を要約してください。\n\nタイトル: " + title + "\n\n本文:\n" + content
	}
	return "Please summarize the following article.\n\nTitle: " + title + "\n\nContent:\n" + content
}

// Parsed is the validated model answer.
type Parsed struct {
	Summary   string
	KeyPoints []string
	Category  string
	Sentiment models.Sentiment
}

// ParseResponse extracts the summary JSON from a model answer, either bare
// or wrapped in a ``` fence. Only the summary field is mandatory.
func ParseResponse(response string) (Parsed, error) {
	text := response
	if m := fencedBlock.FindStringSubmatch(response); m != nil {
		text = strings.TrimSpace(m[1])
	}

	raw := jsonObject.FindString(text)
	if raw == "" {
		return Parsed{}, ErrNoJSON
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Parsed{}, fmt.Errorf("failed to parse summary JSON: %w", err)
	}

	summary, _ := fields["summary"].(string)
	if strings.TrimSpace(summary) == "" {
		return Parsed{}, errors.New("invalid summary field")
	}

	keyPoints := []string{}
	if list, ok := fields["keyPoints"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				keyPoints = append(keyPoints, s)
			}
		}
	}
	if len(keyPoints) > models.MaxKeyPoints {
		keyPoints = keyPoints[:models.MaxKeyPoints]
	}

	category, _ := fields["category"].(string)
	if category == "" {
		category = DefaultCategory
	}

	sentimentStr, _ := fields["sentiment"].(string)
	sentiment := models.Sentiment(sentimentStr)
	if !sentiment.Valid() {
		sentiment = models.SentimentNeutral
	}

	return Parsed{
		Summary:   summary,
		KeyPoints: keyPoints,
		Category:  category,
		Sentiment: sentiment,
	}, nil
}
