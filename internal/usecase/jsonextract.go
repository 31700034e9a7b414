package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// extractJSON recovers a JSON object from free-form model text by taking the
// substring from the first '{' to the last '}', tolerating leading and
// trailing prose. The service gives no structured-output guarantee, so every
// JSON-shaped response goes through here.
func extractJSON(raw string, out any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return errors.New("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), out); err != nil {
		return fmt.Errorf("decode extracted JSON: %w", err)
	}
	return nil
}
