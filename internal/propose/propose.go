// Package propose drafts Japanese outreach emails for analyzed companies.
package propose

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/pkg/anthropic"
)

const (
	// contentPrefixRunes bounds the site content included in the prompt.
	contentPrefixRunes = 2000

	// failureSubject is the sentinel subject returned when drafting fails.
	// Callers detect it with IsFailureSubject and substitute DefaultSubject.
	failureSubject = "メール生成に失敗しました"

	// failureBody is the fixed body returned when drafting fails.
	failureBody = "メール生成に失敗しました。再度お試しください。"
)

// Email is a drafted subject and body.
type Email struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Drafter generates an outreach email for a company.
type Drafter interface {
	Draft(ctx context.Context, companyName, companyInfo, content string, services []string) Email
}

// LLMDrafter implements Drafter over the Anthropic API. It never returns an
// error: any failure yields the fixed failure email, which callers repair
// with the default subject template.
type LLMDrafter struct {
	client anthropic.Client
	model  string
}

// NewLLMDrafter creates an LLMDrafter using the given model.
func NewLLMDrafter(client anthropic.Client, model string) *LLMDrafter {
	return &LLMDrafter{client: client, model: model}
}

// Draft generates a subject and body for the company.
func (d *LLMDrafter) Draft(ctx context.Context, companyName, companyInfo, content string, services []string) Email {
	prompt := fmt.Sprintf(`あなたは手作業代行サービスの営業担当です。以下の企業に向けた営業メールを作成してください。

企業名: %s
企業情報: %s
HP内容: %s
想定サービス: %s

以下の形式でJSONを返してください：
{
  "subject": "メールの件名",
  "body": "メール本文"
}

メール作成のポイント：
1. 企業の事業内容に基づいた具体的な提案
2. 手作業代行によるメリット（コスト削減、品質向上、人手不足解消など）
3. 丁寧でありながら押し付けがましくないトーン
4. 問い合わせへの導線

JSONのみを返してください。`, companyName, companyInfo, prefix(content, contentPrefixRunes), strings.Join(services, ", "))

	resp, err := d.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.model,
		MaxTokens: 2048,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("propose: draft call failed", zap.String("company", companyName), zap.Error(err))
		return failureEmail()
	}

	var email Email
	if err := anthropic.DecodeJSON(resp, &email); err != nil {
		zap.L().Warn("propose: unparseable draft response", zap.String("company", companyName), zap.Error(err))
		return failureEmail()
	}
	resp.Usage.Log(d.model, "draft_proposal")

	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Body) == "" {
		return failureEmail()
	}
	return email
}

func failureEmail() Email {
	return Email{Subject: failureSubject, Body: failureBody}
}

// IsFailureSubject reports whether subject is exactly the drafting-failure
// sentinel.
func IsFailureSubject(subject string) bool {
	return subject == failureSubject
}

// DefaultSubject is the deterministic subject substituted when drafting
// failed, so every stored proposal carries a company-specific subject.
func DefaultSubject(companyName string) string {
	return fmt.Sprintf("【手作業代行サービスのご案内】%s様", companyName)
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
