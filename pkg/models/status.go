package models

// OverallStatus is the coarse per-game status reported by the scraping backend.
// It is the only authoritative signal about how far a game got through the
// pipeline; everything finer-grained is derived from it plus auxiliary fields.
type OverallStatus string

const (
	OverallStatusUnset    OverallStatus = ""         // Zero value = never reported
	OverallStatusPending  OverallStatus = "pending"  // Queued, nothing started
	OverallStatusScraping OverallStatus = "scraping" // Fetch in flight
	OverallStatusSaving   OverallStatus = "saving"   // Parsed, save in flight
	OverallStatusSuccess  OverallStatus = "success"  // Completed cleanly
	OverallStatusWarning  OverallStatus = "warning"  // Completed with diagnostics
	OverallStatusError    OverallStatus = "error"    // Failed somewhere
	OverallStatusSkipped  OverallStatus = "skipped"  // Deliberately not processed
	OverallStatusReview   OverallStatus = "review"   // Awaiting operator confirmation
	OverallStatusUnknown  OverallStatus = "unknown"  // Unrecognized value from the backend
)

// String implements fmt.Stringer for logging
func (s OverallStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s OverallStatus) IsValid() bool {
	switch s {
	case OverallStatusPending, OverallStatusScraping, OverallStatusSaving,
		OverallStatusSuccess, OverallStatusWarning, OverallStatusError,
		OverallStatusSkipped, OverallStatusReview:
		return true
	}
	return false
}

// IsTerminal returns true if the backend will not report further transitions
func (s OverallStatus) IsTerminal() bool {
	switch s {
	case OverallStatusSuccess, OverallStatusWarning, OverallStatusError, OverallStatusSkipped:
		return true
	}
	return false
}

// ParseOverallStatus validates a raw backend status string at the boundary.
// Unrecognized values map to OverallStatusUnknown rather than being carried
// around as free text.
func ParseOverallStatus(raw string) OverallStatus {
	s := OverallStatus(raw)
	if s.IsValid() {
		return s
	}
	return OverallStatusUnknown
}

// DataSource indicates where retrieved page content came from, when known
type DataSource string

const (
	DataSourceUnset   DataSource = ""        // Backend did not report a source
	DataSourceS3      DataSource = "s3"      // Served from the snapshot cache
	DataSourceWeb     DataSource = "web"     // Fetched live from the venue site
	DataSourceNone    DataSource = "none"    // Nothing was retrieved
	DataSourcePending DataSource = "pending" // Retrieval not yet attempted
)

// String implements fmt.Stringer for logging
func (d DataSource) String() string {
	if d == "" {
		return "unset"
	}
	return string(d)
}

// IsValid returns true if the source is a known value
func (d DataSource) IsValid() bool {
	switch d {
	case DataSourceS3, DataSourceWeb, DataSourceNone, DataSourcePending:
		return true
	}
	return false
}

// GameStatus is the parser's classification of a tournament page
type GameStatus string

const (
	GameStatusUnset        GameStatus = ""              // No parse result
	GameStatusScheduled    GameStatus = "SCHEDULED"     // Real tournament, not started
	GameStatusRunning      GameStatus = "RUNNING"       // Real tournament, in progress
	GameStatusFinished     GameStatus = "FINISHED"      // Real tournament, completed
	GameStatusNotFound     GameStatus = "NOT_FOUND"     // Empty slot: page exists, no event behind it
	GameStatusNotPublished GameStatus = "NOT_PUBLISHED" // Event exists but the venue hides it
)

// String implements fmt.Stringer for logging
func (g GameStatus) String() string {
	if g == "" {
		return "unset"
	}
	return string(g)
}

// IsValid returns true if the status is a known parser value
func (g GameStatus) IsValid() bool {
	switch g {
	case GameStatusScheduled, GameStatusRunning, GameStatusFinished,
		GameStatusNotFound, GameStatusNotPublished:
		return true
	}
	return false
}

// IsPlaceholder reports whether the parse result denotes "no real data here"
// rather than a real tournament. Placeholder slots were still successfully
// fetched and parsed; they just carry nothing worth saving.
func (g GameStatus) IsPlaceholder() bool {
	return g == GameStatusNotFound || g == GameStatusNotPublished
}

// SaveAction distinguishes a fresh insert from an update of a prior record
type SaveAction string

const (
	SaveActionCreate SaveAction = "CREATE"
	SaveActionUpdate SaveAction = "UPDATE"
)

// IsValid returns true if the action is a known value
func (a SaveAction) IsValid() bool {
	return a == SaveActionCreate || a == SaveActionUpdate
}
