package assessment

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// 言語タグ（json, javascript, json5 など）付きのフェンスも1つのパターンで扱う
	codeFence         = regexp.MustCompile("```[A-Za-z0-9_+-]*[ \t]*")
	leadingBackticks  = regexp.MustCompile("(?m)^\\s*`+")
	trailingBackticks = regexp.MustCompile("(?m)`+\\s*$")
	blankLines        = regexp.MustCompile(`(?m)^\s*\n+`)

	// (?m) の ^ と $ は \n でしか区切らないので、先に改行を揃える
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Sanitize はモデル応答からコードフェンスやバッククォート、空行を取り除く。
// 変化がなくなるまで繰り返すので、同じ入力に2回適用しても結果は変わらない。
func Sanitize(s string) string {
	s = lineEndings.Replace(s)
	for {
		next := sanitizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

// sanitizeOnce は各置換を固定の順で1回ずつ適用する。どの置換も文字を削るだけなので繰り返しは必ず止まる
func sanitizeOnce(s string) string {
	s = codeFence.ReplaceAllString(s, "")
	s = leadingBackticks.ReplaceAllString(s, "")
	s = trailingBackticks.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type rawAssessment struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Severity       string   `json:"severity"`
	DamageLocation *string  `json:"damage_location"`
	EstimatedParts []string `json:"estimated_parts"`
}

// Parse はモデル応答を DamageAssessment に変換する
func Parse(raw string) (DamageAssessment, error) {
	content := Sanitize(raw)

	if !strings.HasPrefix(content, "{") || !strings.HasSuffix(content, "}") {
		return DamageAssessment{}, newMalformed(content, errors.New("response is not a JSON object"))
	}

	var parsed rawAssessment
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return DamageAssessment{}, newMalformed(content, err)
	}

	if strings.TrimSpace(parsed.Description) == "" {
		return DamageAssessment{}, newMalformed(content, errors.New("description is empty"))
	}

	severity, err := ParseSeverity(parsed.Severity)
	if err != nil {
		return DamageAssessment{}, newMalformed(content, err)
	}

	return DamageAssessment{
		Title:          strings.TrimSpace(parsed.Title),
		Description:    strings.TrimSpace(parsed.Description),
		Severity:       severity,
		DamageLocation: parsed.DamageLocation,
		EstimatedParts: parsed.EstimatedParts,
	}, nil
}
