// Package analyze turns combined site content into extracted service labels
// and a relevance score for the company.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/pkg/anthropic"
)

const (
	// extractPrefixRunes bounds the content sent to service extraction.
	extractPrefixRunes = 3000

	// scorePrefixRunes bounds the content sent to relevance scoring.
	scorePrefixRunes = 4000

	// noManualWorkFound is stored when neither extraction nor scoring
	// produced a manual-work narrative.
	noManualWorkFound = "HP内容から手作業関連の情報は特定できませんでした"
)

// AnalysisResult is the scoring outcome for one company. Defaulted is true
// when the model call failed and the neutral fallback was substituted, so
// callers can tell a real 50 from a failure 50.
type AnalysisResult struct {
	Score               int               `json:"score"`         // outsource need, 0-100
	PartnerScore        int               `json:"partner_score"` // subcontract fit, 0-100
	CompanyType         model.CompanyType `json:"company_type"`
	Reason              string            `json:"reason"`
	ManualWorkPotential string            `json:"manual_work_potential"`
	RecommendedApproach string            `json:"recommended_approach"`
	Defaulted           bool              `json:"defaulted"`
}

// Analyzer extracts services and scores companies from site content.
type Analyzer interface {
	ExtractServices(ctx context.Context, content string) []string
	Score(ctx context.Context, name string, businessType model.BusinessType, content string, services []string) AnalysisResult
}

// LLMAnalyzer implements Analyzer over the Anthropic API using a
// sonnet-tier model. Neither method ever returns an error: extraction
// degrades to an empty list and scoring to the fixed neutral default.
type LLMAnalyzer struct {
	client anthropic.Client
	model  string
}

// NewLLMAnalyzer creates an LLMAnalyzer using the given model.
func NewLLMAnalyzer(client anthropic.Client, model string) *LLMAnalyzer {
	return &LLMAnalyzer{client: client, model: model}
}

type servicesResponse struct {
	Services []string `json:"services"`
}

type scoreResponse struct {
	Score               float64 `json:"score"`
	PartnerScore        float64 `json:"partnerScore"`
	CompanyType         string  `json:"companyType"`
	Reason              string  `json:"reason"`
	ManualWorkPotential string  `json:"manualWorkPotential"`
	RecommendedApproach string  `json:"recommendedApproach"`
}

// ExtractServices pulls manual-work service labels out of site content.
// Returns an empty list on any failure.
func (a *LLMAnalyzer) ExtractServices(ctx context.Context, content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	prompt := fmt.Sprintf(`以下のウェブサイトのコンテンツから、手作業に関連するサービスや業務を抽出してください。

コンテンツ:
%s

以下の形式でJSONを返してください：
{
  "services": ["サービス1", "サービス2", ...]
}

抽出対象：
- 検品、梱包、仕分け、封入、組立、ラベル貼り
- 倉庫作業、発送作業、ピッキング
- 軽作業、内職、手作業
- その他手作業に関連する業務

JSONのみを返してください。`, prefix(content, extractPrefixRunes))

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: 512,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("analyze: service extraction call failed", zap.Error(err))
		return nil
	}

	var parsed servicesResponse
	if err := anthropic.DecodeJSON(resp, &parsed); err != nil {
		zap.L().Warn("analyze: unparseable service extraction response", zap.Error(err))
		return nil
	}
	resp.Usage.Log(a.model, "extract_services")

	var services []string
	for _, s := range parsed.Services {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	return services
}

// Score rates the company's outsource need and partner fit from its site
// content. On any failure it returns the fixed neutral default with
// Defaulted set.
func (a *LLMAnalyzer) Score(ctx context.Context, name string, businessType model.BusinessType, content string, services []string) AnalysisResult {
	prompt := buildScorePrompt(name, businessType, content, services)

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: 1024,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("analyze: scoring call failed", zap.String("company", name), zap.Error(err))
		return defaultResult()
	}

	var parsed scoreResponse
	if err := anthropic.DecodeJSON(resp, &parsed); err != nil {
		zap.L().Warn("analyze: unparseable scoring response", zap.String("company", name), zap.Error(err))
		return defaultResult()
	}
	resp.Usage.Log(a.model, "score")

	return AnalysisResult{
		Score:               clampScore(parsed.Score),
		PartnerScore:        clampScore(parsed.PartnerScore),
		CompanyType:         parseCompanyType(parsed.CompanyType),
		Reason:              parsed.Reason,
		ManualWorkPotential: parsed.ManualWorkPotential,
		RecommendedApproach: parsed.RecommendedApproach,
	}
}

func buildScorePrompt(name string, businessType model.BusinessType, content string, services []string) string {
	bt := string(businessType)
	if bt == "" {
		bt = "不明"
	}
	return fmt.Sprintf(`あなたは手作業代行サービスの営業担当です。以下の企業情報を分析し、手作業（検品、梱包、仕分け、封入、組立など）を外注するニーズと、逆に作業パートナーとして協業できる可能性を判定してください。

企業名: %s
業種: %s
抽出済みサービス: %s
HP内容: %s

以下の形式でJSONを返してください：
{
  "score": 0-100の数値（手作業外注ニーズの可能性スコア）,
  "partnerScore": 0-100の数値（協業パートナーとしての可能性スコア）,
  "companyType": "outsource" | "partner" | "unknown",
  "reason": "判定理由の説明",
  "manualWorkPotential": "想定される手作業の種類（例：検品作業、梱包作業など）",
  "recommendedApproach": "アプローチ方法の提案"
}

判定基準：
- 物流・倉庫業：検品・梱包・仕分けニーズが高い（スコア高め）
- 製造業：組立・検品ニーズがある可能性
- 小売・通販：EC梱包・発送ニーズが高い
- 食品加工：パッケージングニーズがある可能性
- 印刷業：封入・発送作業ニーズが高い
- 同業の代行業者はパートナー候補（partnerScore高め、companyType: partner）

JSONのみを返してください。`, name, bt, joinOrNone(services), prefix(content, scorePrefixRunes))
}

// defaultResult is the fixed neutral record substituted on scoring failure.
func defaultResult() AnalysisResult {
	return AnalysisResult{
		Score:               50,
		PartnerScore:        50,
		CompanyType:         model.CompanyTypeUnknown,
		Reason:              "分析に失敗しました",
		ManualWorkPotential: "不明",
		RecommendedApproach: "直接お問い合わせください",
		Defaulted:           true,
	}
}

// ComposeManualWork builds the stored manual-work narrative. Extracted
// services are prepended to the analyzer's own narrative, not substituted
// for it.
func ComposeManualWork(services []string, narrative string) string {
	if len(services) > 0 {
		return fmt.Sprintf("%sに関連する手作業の可能性があります。%s", strings.Join(services, "、"), narrative)
	}
	if strings.TrimSpace(narrative) != "" {
		return narrative
	}
	return noManualWorkFound
}

func clampScore(raw float64) int {
	s := int(raw)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func parseCompanyType(raw string) model.CompanyType {
	switch model.CompanyType(strings.ToLower(strings.TrimSpace(raw))) {
	case model.CompanyTypeOutsource:
		return model.CompanyTypeOutsource
	case model.CompanyTypePartner:
		return model.CompanyTypePartner
	default:
		return model.CompanyTypeUnknown
	}
}

func joinOrNone(services []string) string {
	if len(services) == 0 {
		return "なし"
	}
	return strings.Join(services, "、")
}

// prefix truncates s to at most n runes.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
