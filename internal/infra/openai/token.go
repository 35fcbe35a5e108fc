package openai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenTrimmer はテキストをトークン数の上限に収めるインターフェース
type TokenTrimmer interface {
	TrimToTokenLimit(text string, maxTokens int) string
}

// tiktokenTrimmer は tiktoken を利用した TokenTrimmer 実装
type tiktokenTrimmer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenTrimmer は cl100k_base エンコーディングの TokenTrimmer を作成する
func NewTokenTrimmer() (TokenTrimmer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &tiktokenTrimmer{encoding: enc}, nil
}

func (t *tiktokenTrimmer) TrimToTokenLimit(text string, maxTokens int) string {
	if t.encoding == nil || maxTokens <= 0 {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}
