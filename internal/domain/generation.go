package domain

// GenerateParams are the per-call knobs for the text-generation service.
// Every pipeline prompt pins temperature to 0 for reproducible output.
type GenerateParams struct {
	Temperature *float32
}
