package transformer

import (
	"encoding/json"
	"fmt"
	"strings"

	"listingpilot/header"
)

const systemPrompt = "You are an e-commerce listing specialist for Mercado Libre. You answer with a single JSON object and nothing else."

func optimizePrompt(req OptimizeRequest) string {
	return fmt.Sprintf(`Optimize this listing to improve search ranking and conversion.

Marketplace rules:
- Title: at most 60 characters. Product + Brand + Model + main specification. No "free shipping" or "sale" wording.
- Description: plain text, no HTML. Clear, structured, focused on benefits and technical characteristics.

Current data:
- Suggested category: %s
- Title: %s
- Description: %s

Return ONLY a valid JSON object with this structure, without markdown:
{"newTitle": "...", "newDescription": "...", "tips": "..."}`,
		req.Category, req.CurrentTitle, req.CurrentDescription)
}

func smartEditPrompt(record header.Record, instruction string) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return fmt.Sprintf(`These are the current values of one product row, as JSON keyed by column name:
%s

User instruction: %q

Tasks:
1. Apply the instruction to the data.
2. When asked to complete characteristics, use the SKU or other references and your general knowledge to fill empty fields (Color, Brand, Model, ...).
3. Return ONLY a JSON object with the columns you changed or filled, using the exact column names above. Do not return untouched columns.
4. No markdown fences.

Example: {"Color": "Black", "Brand": "Sony"}`, payload, instruction), nil
}

// stripFences removes markdown code fences models like to wrap JSON in.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
