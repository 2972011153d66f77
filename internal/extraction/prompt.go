package extraction

import "os"

// DefaultInstruction is sent with every label unless the user supplies their own
const DefaultInstruction = `Please analyze this image of a chemical or product label and extract key information.
Focus on identifying:
- Chemical/Product Name (the primary name on the label)
- CAS Number (if present)
- Formula (chemical formula if present)
- Concentration/Strength (if applicable)
- Lot/Batch Number (if present)
- Manufacturer (if visible)
- Any other relevant identifiers

Return the data as a JSON object containing all the information found.
Format: {"Chemical Name": "...", "CAS Number": "...", "Formula": "...", "Concentration": "...", "Lot Number": "...", "Manufacturer": "..."}
Only include fields where information is found. Only return valid JSON, no other text.`

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case "anthropic":
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			return "claude-sonnet-4-20250514"
		}
		return model
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "mistral-small3.2:24b"
		}
		return model
	case "gemini":
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			return "gemini-1.5-pro"
		}
		return model
	default:
		return ""
	}
}
