package driven

// PromptStore provides access to model prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptExtractInsights is the system prompt for insight extraction.
	// It has no format placeholders.
	PromptExtractInsights = "extract_insights"
)
