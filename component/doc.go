// Package component defines the lifecycle and discovery contracts shared
// by the harness components.
//
// A component is a long-running piece of the stream path: the generator
// that publishes vectors or the verifier that consumes and checks them.
// Components follow a unified lifecycle pattern:
//
//   - Initialize() error                  setup and allocation, no context
//   - Start(ctx context.Context) error    begin processing, context-scoped
//   - Stop(timeout time.Duration) error   graceful shutdown with a bound
//
// Dependencies are injected through a single Dependencies struct rather
// than package-level globals, so each binary wires exactly one messenger,
// one metrics registry, and one logger into the components it runs.
package component
