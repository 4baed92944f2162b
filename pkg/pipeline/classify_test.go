package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_EmptyMessage(t *testing.T) {
	assert.Equal(t, MessageSignals{}, Classify(""))
}

func TestClassify_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"snake case", "game NOT_FOUND on page", true},
		{"spaced", "tournament not found", true},
		{"mixed case", "Not Found", true},
		{"absent", "all good", false},
		{"partial word does not match", "notfoundish", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message).NotFound)
		})
	}
}

func TestClassify_NotPublished(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"snake case", "event NOT_PUBLISHED", true},
		{"spaced", "event is not published yet", true},
		{"absent", "published fine", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message).NotPublished)
		})
	}
}

func TestClassify_DoNotScrape(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"spaced", "venue marked Do Not Scrape", true},
		{"snake case", "do_not_scrape flag set", true},
		{"collapsed", "DoNotScrape policy", true},
		{"absent", "scrape completed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message).DoNotScrape)
		})
	}
}

func TestClassify_FetchError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"fetch keyword", "Fetch timeout after 30s", true},
		{"timeout keyword", "request Timeout", true},
		{"network keyword", "network unreachable", true},
		{"status code", "server returned 404", true},
		{"absent", "parse error in field buyin", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message).FetchError)
		})
	}
}

func TestClassify_SaveError(t *testing.T) {
	assert.True(t, Classify("failed to save record").SaveError)
	assert.True(t, Classify("error while Saving").SaveError)
	assert.False(t, Classify("fetch failed").SaveError)
}

func TestClassify_OverlappingMarkers(t *testing.T) {
	// One message can carry several markers; Classify reports them all and
	// leaves precedence to the deriver.
	sig := Classify("save failed: network timeout while fetching NOT_FOUND page")
	assert.True(t, sig.SaveError)
	assert.True(t, sig.FetchError)
	assert.True(t, sig.NotFound)
	assert.False(t, sig.NotPublished)
}
