package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "aria", "aria"},
		{"uppercase folded", "Bellagio", "bellagio"},
		{"spaces and punctuation", `Wynn / Summer "Classic"`, "wynn_summer_classic"},
		{"collapsed underscores", "a___b", "a_b"},
		{"empty input", "", "unnamed"},
		{"only invalid chars", `///`, "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeKey(tt.input))
		})
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "None"},
		{"not found", fmt.Errorf("game %q: %w", "g1", ErrNotFound), "Store_NotFound"},
		{"database", fmt.Errorf("%w: txn failed", ErrDatabase), "Database_Other"},
		{"encoding", fmt.Errorf("%w: bad msgpack", ErrEncoding), "Encoding_Other"},
		{"parsing html", fmt.Errorf("%w: bad HTML fragment", ErrParsing), "Content_ParsingHTML"},
		{"parsing other", fmt.Errorf("%w: odd structure", ErrParsing), "Content_ParsingOther"},
		{"robots", fmt.Errorf("%w: /events", ErrRobotsDisallowed), "Policy_Robots"},
		{"do not scrape", fmt.Errorf("%w: venue aria", ErrDoNotScrape), "Policy_DoNotScrape"},
		{"job conflict", fmt.Errorf("%w: venue aria", ErrJobConflict), "Job_Conflict"},
		{"config", fmt.Errorf("%w: bad interval", ErrConfigValidation), "Config_Validation"},
		{"context canceled", context.Canceled, "System_ContextCanceled"},
		{"deadline", context.DeadlineExceeded, "System_ContextDeadlineExceeded"},
		{"fetch timeout", fmt.Errorf("%w: dial timeout", ErrFetch), "Network_TimeoutGeneric"},
		{"fetch 404", fmt.Errorf("%w: status 404", ErrFetch), "HTTP_404"},
		{"unwrapped refused", errors.New("connection refused"), "Network_ConnectionRefused"},
		{"unknown", errors.New("something odd"), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeError(tt.err))
		})
	}
}
