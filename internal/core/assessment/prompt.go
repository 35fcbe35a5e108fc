package assessment

// damagePrompt は vision モデルに JSON オブジェクト1つだけを返させる指示文
const damagePrompt = `Can you describe the damage to the vehicle, including a title and the severity (categorized as low, medium or high)?
Please return json instead of text. Respond with exactly one JSON object and no text outside of it.
The json structure must use the keys "title", "description" and "severity".
"severity" must be one of "low", "medium" or "high".
Optionally include "damage_location" (string) and "estimated_parts" (array of strings).`

// BuildPrompt は損傷評価用のプロンプトを返す
func BuildPrompt() string {
	return damagePrompt
}
