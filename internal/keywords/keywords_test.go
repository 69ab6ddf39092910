package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagyolink/leadscout/internal/model"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		want    []string
	}{
		{"ascii space", "物流 倉庫", []string{"物流", "倉庫"}},
		{"full-width space", "物流　倉庫", []string{"物流", "倉庫"}},
		{"mixed and repeated spaces", " 検品  　 梱包 ", []string{"検品", "梱包"}},
		{"empty", "", nil},
		{"single term", "梱包", []string{"梱包"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.keyword))
		})
	}
}

func TestForSearch_IncludesAllGroups(t *testing.T) {
	kws := ForSearch(model.BusinessLogistics, "軽作業 大阪")

	assert.Contains(t, kws, "手作業")    // common
	assert.Contains(t, kws, "ピッキング") // logistics-specific
	assert.Contains(t, kws, "軽作業")    // tokenized search keyword
	assert.Contains(t, kws, "大阪")
}

func TestForSearch_Deduplicates(t *testing.T) {
	// 梱包 appears in both the common retail set and the search keyword.
	kws := ForSearch(model.BusinessRetail, "梱包")

	count := 0
	for _, kw := range kws {
		if kw == "梱包" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestForSearch_UnknownBusinessType(t *testing.T) {
	kws := ForSearch(model.BusinessOther, "")
	assert.ElementsMatch(t, commonSearchKeywords, kws)
}

func TestForSiteMap_ORJoined(t *testing.T) {
	terms := ForSiteMap(model.BusinessPrinting, "納期")

	assert.Contains(t, terms, " OR ")
	assert.Contains(t, terms, "会社概要")
	assert.Contains(t, terms, "DM発送")
	assert.Contains(t, terms, "納期")
}
