// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.diarymem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - EnvOverlay: environment variable overrides on top of a ConfigStore
//   - PromptStore: editable prompt templates with built-in defaults
package file
