package plugin

import "context"

// DeckPlugin is the contract a plugin process implements. The host only
// relays command invocations; everything else a plugin contributes is
// declared in its manifest and rendered by the shell.
type DeckPlugin interface {
	// Invoke executes a declared command with the given payload.
	Invoke(ctx context.Context, command string, payload map[string]any) (map[string]any, error)
}

// CommandTransport carries a command invocation to a plugin. The production
// transport runs plugins out of process over net/rpc; tests substitute an
// in-process fake.
type CommandTransport interface {
	Invoke(ctx context.Context, record *Record, command string, payload map[string]any) (map[string]any, error)

	// Close releases any resources held for the given plugin (e.g. a
	// running child process). Closing an unknown plugin is a no-op.
	Close(pluginID string)
}
