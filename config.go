package toolpick

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Settings is the environment-driven configuration of a turn.
type Settings struct {
	Slot              string
	IncludeReply      bool
	MultipleActions   bool
	ValidateArguments bool
	ToolChoice        string
	CallTimeout       time.Duration
	CatalogFile       string
}

// SettingsFromEnv reads Settings from TOOLPICK_* environment variables.
// Unparseable values fall back to the defaults.
func SettingsFromEnv() Settings {
	return Settings{
		Slot:              envString("TOOLPICK_SLOT", DefaultSlot),
		IncludeReply:      envBool("TOOLPICK_INCLUDE_REPLY", true),
		MultipleActions:   envBool("TOOLPICK_MULTIPLE", false),
		ValidateArguments: envBool("TOOLPICK_VALIDATE_ARGS", false),
		ToolChoice:        envString("TOOLPICK_TOOL_CHOICE", ""),
		CallTimeout:       envDuration("TOOLPICK_CALL_TIMEOUT", 0),
		CatalogFile:       envString("TOOLPICK_CATALOG", ""),
	}
}

// AssembleOptions maps s onto Assemble options.
func (s Settings) AssembleOptions(logger *slog.Logger) []AssembleOption {
	opts := []AssembleOption{WithLogger(logger)}
	if s.IncludeReply {
		opts = append(opts, WithReply())
	}
	if s.MultipleActions {
		opts = append(opts, WithMultipleActions())
	}
	if s.ValidateArguments {
		opts = append(opts, WithArgumentValidation())
	}
	if s.ToolChoice != "" {
		opts = append(opts, WithToolChoice(s.ToolChoice))
	}
	return opts
}

// Middlewares returns the client middleware chain implied by s: recovery,
// logging, and a call timeout when one is set.
func (s Settings) Middlewares(logger *slog.Logger) []Middleware {
	mws := []Middleware{WithRecovery(), WithLogging(logger)}
	if s.CallTimeout > 0 {
		mws = append(mws, WithTimeoutMiddleware(s.CallTimeout))
	}
	return mws
}

// LoadCatalog reads the catalog file named by s.CatalogFile.
func (s Settings) LoadCatalog() ([]FunctionSpec, error) {
	if s.CatalogFile == "" {
		return nil, &ConfigError{Reason: "TOOLPICK_CATALOG is not set"}
	}
	data, err := os.ReadFile(s.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return LoadCatalog(data)
}

// Assemble assembles actions according to s.
func (s Settings) Assemble(actions []Descriptor, logger *slog.Logger) (*Contract, error) {
	return Assemble(actions, s.Slot, s.AssembleOptions(logger)...)
}

func envString(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
