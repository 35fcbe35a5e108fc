// Package imagecodec は画像バイト列と base64 / data URI 表現の相互変換を扱う。
// 画像として妥当かどうかの検証は行わない。
package imagecodec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMediaType は種別を判定できなかった場合に使うメディアタイプ
const DefaultMediaType = "image/jpeg"

var dataURIHeader = regexp.MustCompile(`^data:image/[A-Za-z0-9.+-]+;base64,`)

// Encode は生バイト列を標準 base64 に変換する
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// EncodeFile はファイルを読み込んで base64 に変換する
func EncodeFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return Encode(raw), nil
}

// StripDataURI は先頭の data:image/<type>;base64, ヘッダを取り除く。
// JSON 文字列リテラルとして送られてきた場合はデコードしてから処理する。
func StripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		var decoded string
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			s = strings.TrimSpace(decoded)
		}
	}
	return dataURIHeader.ReplaceAllString(s, "")
}

// DataURI は base64 画像を vision API に渡す data URI に変換する
func DataURI(b64 string) string {
	return fmt.Sprintf("data:%s;base64,%s", MediaType(b64), b64)
}

// MediaType は base64 画像の先頭バイトからメディアタイプを判定する。
// デコードできない場合や画像でない場合は DefaultMediaType を返す。
func MediaType(b64 string) string {
	// 判定には先頭数KBで足りる
	head := b64
	if len(head) > 4096 {
		head = head[:4096]
	}
	raw, err := base64.StdEncoding.DecodeString(head)
	if err != nil || len(raw) == 0 {
		return DefaultMediaType
	}

	mtype := mimetype.Detect(raw)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return DefaultMediaType
	}
	return mtype.String()
}
