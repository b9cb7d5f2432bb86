package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the application logger. It writes to stderr so stdout stays
// clean for the MCP stdio transport, standardizes the "error" key to "err",
// and masks property inscriptions so tax identifiers do not end up in log
// aggregation.
func New(level slog.Level) *slog.Logger {
	return slog.New(handler(os.Stderr, level))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func handler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: rewriteAttr,
	})
}

func rewriteAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case "error":
		a.Key = "err"
	case "property_id":
		a.Value = slog.StringValue(maskPropertyID(a.Value.String()))
	}
	return a
}

// maskPropertyID keeps only the last four digits of an inscription.
func maskPropertyID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}
