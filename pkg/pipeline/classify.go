package pipeline

import "strings"

// MessageSignals is the boolean distillation of a backend's free-text
// diagnostic message. Derivation logic operates only on these flags, never on
// the raw string, so the substring heuristics live here and nowhere else.
type MessageSignals struct {
	NotFound     bool // Message indicates an empty tournament slot
	NotPublished bool // Message indicates a hidden/unpublished event
	DoNotScrape  bool // Message indicates a do-not-scrape policy hit
	FetchError   bool // Message points at the retrieve step
	SaveError    bool // Message points at the save step
}

// Keyword sets checked case-insensitively against the message. Upstream
// message formats are not stable; these reflect the strings the backend has
// actually emitted over time.
var (
	notFoundMarkers     = []string{"not_found", "not found"}
	notPublishedMarkers = []string{"not_published", "not published"}
	doNotScrapeMarkers  = []string{"do not scrape", "do_not_scrape", "donotscrape"}
	saveErrorMarkers    = []string{"save", "saving"}
	fetchErrorMarkers   = []string{"fetch", "timeout", "network", "404"}
)

func containsAny(msg string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Classify inspects a free-text backend message and reports which known
// markers it carries. The empty message yields the zero MessageSignals.
//
// A "not found" marker counts toward FetchError only when it does not denote
// a true empty-slot placeholder; that disambiguation needs the parsed payload
// and is done by the deriver, so Classify reports both facts independently:
// NotFound covers the placeholder reading, FetchError covers the
// fetch-failure keywords excluding "not found".
func Classify(message string) MessageSignals {
	if message == "" {
		return MessageSignals{}
	}
	msg := strings.ToLower(message)

	return MessageSignals{
		NotFound:     containsAny(msg, notFoundMarkers),
		NotPublished: containsAny(msg, notPublishedMarkers),
		DoNotScrape:  containsAny(msg, doNotScrapeMarkers),
		FetchError:   containsAny(msg, fetchErrorMarkers),
		SaveError:    containsAny(msg, saveErrorMarkers),
	}
}
