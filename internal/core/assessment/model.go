package assessment

import (
	"fmt"
	"strings"
)

// Severity は損傷の深刻度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity は大文字小文字・前後空白を無視して Severity に変換する
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return sev, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
}

// IsValid は列挙値のいずれかであれば true を返す
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// String は Severity の文字列表現を返す
func (s Severity) String() string {
	return string(s)
}

// DamageAssessment は画像1枚に対する損傷評価
type DamageAssessment struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	DamageLocation *string  `json:"damage_location,omitempty"`
	EstimatedParts []string `json:"estimated_parts,omitempty"`
}
