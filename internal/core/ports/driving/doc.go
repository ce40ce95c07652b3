// Package driving declares what the CLI and the scheduler may ask of the
// core. internal/core/services provides the implementations.
package driving
