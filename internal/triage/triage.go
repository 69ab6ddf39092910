// Package triage scores a batch of search candidates with a single cheap
// model call. One request covers the whole list to keep per-search cost
// flat regardless of result count.
package triage

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/pkg/anthropic"
)

const (
	// defaultReason is assigned to candidates the model did not score.
	defaultReason = "分析できませんでした"

	// maxReasonRunes bounds the stored rationale.
	maxReasonRunes = 50

	maxTokens = 2048
)

// Result is the triage outcome for one candidate.
type Result struct {
	PlaceID string
	Score   int // 1-3
	Reason  string
}

// Scorer assigns a coarse 1-3 relevance score to each candidate.
type Scorer interface {
	Score(ctx context.Context, candidates []model.Candidate) []Result
}

// LLMScorer implements Scorer over the Anthropic API using a haiku-tier
// model. It never returns an error: any failure degrades to the all-default
// result set so a triage outage cannot block the search flow.
type LLMScorer struct {
	client anthropic.Client
	model  string
}

// NewLLMScorer creates an LLMScorer using the given model.
func NewLLMScorer(client anthropic.Client, model string) *LLMScorer {
	return &LLMScorer{client: client, model: model}
}

type batchResponse struct {
	Results []struct {
		PlaceID string  `json:"place_id"`
		Score   float64 `json:"score"`
		Reason  string  `json:"reason"`
	} `json:"results"`
}

// Score triages all candidates in one model call. The returned slice always
// has one entry per input candidate in input order; candidates missing from
// the model's answer get the minimum score with a placeholder reason.
func (s *LLMScorer) Score(ctx context.Context, candidates []model.Candidate) []Result {
	if len(candidates) == 0 {
		return nil
	}

	byPlaceID := make(map[string]Result)

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildBatchPrompt(candidates)},
		},
	})
	if err != nil {
		zap.L().Warn("triage: batch call failed, defaulting all candidates",
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
	} else {
		var parsed batchResponse
		if decodeErr := anthropic.DecodeJSON(resp, &parsed); decodeErr != nil {
			zap.L().Warn("triage: unparseable batch response, defaulting all candidates",
				zap.Error(decodeErr),
			)
		} else {
			for _, r := range parsed.Results {
				byPlaceID[r.PlaceID] = Result{
					PlaceID: r.PlaceID,
					Score:   clampScore(r.Score),
					Reason:  truncateReason(r.Reason),
				}
			}
			resp.Usage.Log(s.model, "triage")
		}
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		if r, ok := byPlaceID[c.PlaceID]; ok {
			out[i] = r
			continue
		}
		out[i] = Result{PlaceID: c.PlaceID, Score: 1, Reason: defaultReason}
	}
	return out
}

// buildBatchPrompt renders the numbered candidate list into the Japanese
// triage prompt.
func buildBatchPrompt(candidates []model.Candidate) string {
	var entries []string
	for i, c := range candidates {
		entries = append(entries, fmt.Sprintf(
			"[%d] place_id: %s\n企業名: %s\nHP: %s\n業種: %s\nページタイトル: %s\nページ説明: %s",
			i+1, c.PlaceID, c.Name, c.Website,
			orUnknown(string(c.BusinessType), "不明"),
			orUnknown(c.MetaTitle, "取得できず"),
			orUnknown(c.MetaDescription, "取得できず"),
		))
	}

	return fmt.Sprintf(`あなたは手作業代行サービスの営業担当です。以下の企業リストを分析し、手作業ニーズの可能性を3段階で評価してください。

【企業リスト】
%s

【評価基準】
★★★（score: 3）高い可能性:
- 物流・倉庫・製造・EC関連の企業
- ページ内容に「検品」「梱包」「仕分け」「発送」「軽作業」「手作業」などのキーワードあり
- 明確に手作業を必要とする事業内容

★★☆（score: 2）中程度:
- 事業内容から一定の手作業ニーズが推測できる
- 関連キーワードはないが業種から可能性あり
- B2B向けサービス業など

★☆☆（score: 1）低い:
- 手作業ニーズが低いか判断できない
- IT企業、コンサル、士業など
- 情報が不足している

以下の形式でJSONを返してください：
{
  "results": [
    {
      "place_id": "企業のplace_id",
      "score": 1-3の数値,
      "reason": "判定理由（20-30文字程度）"
    }
  ]
}

重要:
- 全企業について必ず結果を返してください
- place_idは入力そのままを返してください
- reasonは簡潔に（長くても50文字以内）

JSONのみを返してください。`, strings.Join(entries, "\n\n"))
}

func orUnknown(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

// clampScore rounds and clamps a raw model score into {1, 2, 3}.
func clampScore(raw float64) int {
	s := int(math.Round(raw))
	if s < 1 {
		return 1
	}
	if s > 3 {
		return 3
	}
	return s
}

// truncateReason bounds the rationale, falling back to the placeholder when
// the model returned none.
func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return defaultReason
	}
	runes := []rune(reason)
	if len(runes) > maxReasonRunes {
		return string(runes[:maxReasonRunes])
	}
	return reason
}
