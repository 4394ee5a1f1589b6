// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Storage and AI providers are only
// reached through driven ports, so every service can run against fakes.
package services
