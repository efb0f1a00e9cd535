package toolpick

import "log/slog"

// assembleOptions hold optional settings for Assemble.
type assembleOptions struct {
	multiple   bool
	reply      bool
	toolChoice string
	validate   bool
	logger     *slog.Logger
}

// AssembleOption configures Assemble (e.g. WithReply, WithMultipleActions).
type AssembleOption func(*assembleOptions)

// WithMultipleActions lets the model select a list of actions in one turn
// instead of exactly one. Streaming is not available for such contracts.
func WithMultipleActions() AssembleOption {
	return func(o *assembleOptions) {
		o.multiple = true
	}
}

// WithReply adds the built-in reply_to_user action, whose content is streamed
// to the caller as text deltas.
func WithReply() AssembleOption {
	return func(o *assembleOptions) {
		o.reply = true
	}
}

// WithToolChoice restricts the offered actions to the one with the given name.
// The reply action, when enabled, stays available.
func WithToolChoice(name string) AssembleOption {
	return func(o *assembleOptions) {
		o.toolChoice = name
	}
}

// WithArgumentValidation validates the arguments of every finalized action
// against the parameter schema it was described with.
func WithArgumentValidation() AssembleOption {
	return func(o *assembleOptions) {
		o.validate = true
	}
}

// WithLogger sets the logger for assembly and schema warnings. Nil means slog.Default().
func WithLogger(logger *slog.Logger) AssembleOption {
	return func(o *assembleOptions) {
		o.logger = logger
	}
}
