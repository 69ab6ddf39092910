// Package keywords defines the keyword sets used to pick crawl targets on a
// company's website, plus helpers to combine them with per-search context.
package keywords

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sagyolink/leadscout/internal/model"
)

// businessSearchKeywords are the per-industry terms for the domain-scoped
// search strategy.
var businessSearchKeywords = map[model.BusinessType][]string{
	model.BusinessLogistics: {
		"物流", "倉庫", "配送", "検品", "梱包", "仕分け", "ピッキング",
		"logistics", "warehouse", "shipping", "packing",
	},
	model.BusinessManufacturing: {
		"製造", "組立", "加工", "検査", "部品", "生産",
		"manufacturing", "assembly", "production",
	},
	model.BusinessRetail: {
		"EC", "通販", "梱包", "発送", "フルフィルメント", "在庫管理",
		"e-commerce", "fulfillment", "inventory",
	},
	model.BusinessFood: {
		"食品", "加工", "パッケージング", "仕分け", "包装", "衛生",
		"food processing", "packaging",
	},
	model.BusinessPrinting: {
		"印刷", "DM", "封入", "発送", "ダイレクトメール", "封筒",
		"printing", "mailing", "direct mail",
	},
}

// businessMapKeywords are the per-industry service terms for the site-map
// filtering strategy.
var businessMapKeywords = map[model.BusinessType][]string{
	model.BusinessLogistics:     {"物流サービス", "倉庫サービス", "検品サービス", "梱包サービス"},
	model.BusinessManufacturing: {"製造サービス", "組立サービス", "加工サービス", "製品"},
	model.BusinessRetail:        {"ECサービス", "通販支援", "フルフィルメント", "発送代行"},
	model.BusinessFood:          {"食品加工", "パッケージング", "加工サービス"},
	model.BusinessPrinting:      {"印刷サービス", "DM発送", "封入サービス", "メール便"},
}

// commonSearchKeywords signal outsourceable manual work regardless of
// industry.
var commonSearchKeywords = []string{
	"手作業", "外注", "委託", "作業", "サービス", "代行",
	"アウトソーシング", "業務委託", "請負",
	"outsourcing", "manual work", "service", "subcontract",
}

// commonMapKeywords name the page types worth crawling on any site.
var commonMapKeywords = []string{
	"サービス", "事業", "会社概要", "料金", "実績", "事例", "お客様の声",
	"導入事例", "ソリューション", "業務内容", "サービス一覧",
	"service", "about", "price", "case", "solution", "business", "works",
}

// Tokenize splits a free-text search keyword into terms. Input is NFKC
// normalized first so full-width spaces and compatibility forms collapse
// into their canonical equivalents.
func Tokenize(keyword string) []string {
	return strings.Fields(norm.NFKC.String(keyword))
}

// ForSearch builds the keyword list for the domain-scoped search strategy:
// common manual-work terms, plus industry terms, plus the tokenized
// originating search keyword. Order is stable and duplicates are removed.
func ForSearch(businessType model.BusinessType, searchKeyword string) []string {
	return merge(commonSearchKeywords, businessSearchKeywords[businessType], Tokenize(searchKeyword))
}

// ForSiteMap builds the OR-joined term string for the site-map strategy:
// common page-type terms, plus industry service terms, plus the tokenized
// originating search keyword.
func ForSiteMap(businessType model.BusinessType, searchKeyword string) string {
	terms := merge(commonMapKeywords, businessMapKeywords[businessType], Tokenize(searchKeyword))
	return strings.Join(terms, " OR ")
}

// merge concatenates the groups preserving first-seen order, dropping
// duplicates and blank entries.
func merge(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range groups {
		for _, term := range group {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}
