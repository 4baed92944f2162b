package models

import "time"

// ParsedPayload is the structured result the parser extracted from a page,
// when parsing happened. SnapshotKey presence implies the content came from
// the snapshot cache rather than a live fetch.
type ParsedPayload struct {
	GameStatus  GameStatus `json:"game_status,omitempty" msgpack:"game_status,omitempty"`
	DoNotScrape bool       `json:"do_not_scrape,omitempty" msgpack:"do_not_scrape,omitempty"`
	SnapshotKey string     `json:"snapshot_key,omitempty" msgpack:"snapshot_key,omitempty"`

	Name           string    `json:"name,omitempty" msgpack:"name,omitempty"`
	GameType       string    `json:"game_type,omitempty" msgpack:"game_type,omitempty"`
	BuyInCents     int64     `json:"buy_in_cents,omitempty" msgpack:"buy_in_cents,omitempty"`
	StartTime      time.Time `json:"start_time,omitempty" msgpack:"start_time,omitempty"`
	Entrants       int       `json:"entrants,omitempty" msgpack:"entrants,omitempty"`
	PrizePoolCents int64     `json:"prize_pool_cents,omitempty" msgpack:"prize_pool_cents,omitempty"`
}

// SaveResult records what the save step did, when it ran
type SaveResult struct {
	Action   SaveAction `json:"action" msgpack:"action"`
	RecordID string     `json:"record_id" msgpack:"record_id"`
}

// ProcessingRecord is the loosely-structured signal set the backend reports
// for one tracked game. It is the sole input to pipeline state derivation.
type ProcessingRecord struct {
	OverallStatus    OverallStatus  `json:"overall_status" msgpack:"overall_status"`
	Message          string         `json:"message,omitempty" msgpack:"message,omitempty"`
	DataSource       DataSource     `json:"data_source,omitempty" msgpack:"data_source,omitempty"`
	ParsedPayload    *ParsedPayload `json:"parsed_payload,omitempty" msgpack:"parsed_payload,omitempty"`
	SaveResult       *SaveResult    `json:"save_result,omitempty" msgpack:"save_result,omitempty"`
	ExistingRecordID string         `json:"existing_record_id,omitempty" msgpack:"existing_record_id,omitempty"`
}

// TrackedGame is one tournament slot under observation: a venue page the
// operation wants scraped, plus the backend's latest processing record for it.
type TrackedGame struct {
	ID          string    `json:"id" msgpack:"id"`
	VenueKey    string    `json:"venue_key" msgpack:"venue_key"`
	SeriesKey   string    `json:"series_key,omitempty" msgpack:"series_key,omitempty"`
	EventNumber int       `json:"event_number" msgpack:"event_number"`
	URL         string    `json:"url" msgpack:"url"`
	Hidden      bool      `json:"hidden,omitempty" msgpack:"hidden,omitempty"`
	TrackedAt   time.Time `json:"tracked_at" msgpack:"tracked_at"`
	RefreshedAt time.Time `json:"refreshed_at,omitempty" msgpack:"refreshed_at,omitempty"`

	Processing ProcessingRecord `json:"processing" msgpack:"processing"`
}

// TournamentRecord is a saved tournament: what the save step produces once a
// parsed payload is confirmed (or auto-saved) into the records store.
type TournamentRecord struct {
	ID          string    `json:"id" msgpack:"id"`
	GameID      string    `json:"game_id" msgpack:"game_id"`
	VenueKey    string    `json:"venue_key" msgpack:"venue_key"`
	SeriesKey   string    `json:"series_key,omitempty" msgpack:"series_key,omitempty"`
	EventNumber int       `json:"event_number" msgpack:"event_number"`
	Placeholder bool      `json:"placeholder,omitempty" msgpack:"placeholder,omitempty"`

	Name           string    `json:"name,omitempty" msgpack:"name,omitempty"`
	GameType       string    `json:"game_type,omitempty" msgpack:"game_type,omitempty"`
	BuyInCents     int64     `json:"buy_in_cents,omitempty" msgpack:"buy_in_cents,omitempty"`
	StartTime      time.Time `json:"start_time,omitempty" msgpack:"start_time,omitempty"`
	Entrants       int       `json:"entrants,omitempty" msgpack:"entrants,omitempty"`
	PrizePoolCents int64     `json:"prize_pool_cents,omitempty" msgpack:"prize_pool_cents,omitempty"`

	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" msgpack:"updated_at,omitempty"`
}

// Venue is an external website tournaments are scraped from
type Venue struct {
	Key         string    `json:"key" msgpack:"key"`
	Name        string    `json:"name" msgpack:"name"`
	BaseURL     string    `json:"base_url" msgpack:"base_url"`
	DoNotScrape bool      `json:"do_not_scrape,omitempty" msgpack:"do_not_scrape,omitempty"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
}

// Series groups tracked games into a named tournament series at a venue
type Series struct {
	Key       string    `json:"key" msgpack:"key"`
	VenueKey  string    `json:"venue_key" msgpack:"venue_key"`
	Name      string    `json:"name" msgpack:"name"`
	StartDate time.Time `json:"start_date,omitempty" msgpack:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty" msgpack:"end_date,omitempty"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Snapshot is a cached copy of a fetched venue page, kept for review and
// debugging. Body is raw HTML.
type Snapshot struct {
	Key       string    `json:"key" msgpack:"key"`
	GameID    string    `json:"game_id" msgpack:"game_id"`
	URL       string    `json:"url" msgpack:"url"`
	FetchedAt time.Time `json:"fetched_at" msgpack:"fetched_at"`
	Body      []byte    `json:"-" msgpack:"body"`
}
