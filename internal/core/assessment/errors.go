package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable は外部モデル（vision / embedding）に到達できない、または失敗応答の場合のエラー
	ErrUpstreamUnavailable = errors.New("upstream model unavailable")

	// ErrMalformedResponse はモデル応答を評価として解釈できない場合のエラー
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrInvalidSeverity は severity が low / medium / high のいずれでもない場合のエラー
	ErrInvalidSeverity = errors.New("invalid severity")
)

// excerptLimit はエラーに含める応答抜粋の最大文字数
const excerptLimit = 100

// MalformedResponseError は解釈に失敗した応答の抜粋を保持する
type MalformedResponseError struct {
	Excerpt string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %q", ErrMalformedResponse, e.Err, e.Excerpt)
	}
	return fmt.Sprintf("%s: %q", ErrMalformedResponse, e.Excerpt)
}

// Unwrap は ErrMalformedResponse と原因エラーの両方を返す
func (e *MalformedResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}
	return []error{ErrMalformedResponse, e.Err}
}

func newMalformed(content string, err error) *MalformedResponseError {
	return &MalformedResponseError{Excerpt: excerpt(content), Err: err}
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptLimit {
		return s
	}
	return string(runes[:excerptLimit])
}
