// Package pipeline reconstructs per-stage Retrieve/Parse/Save/Store state for
// a tracked game from the coarse processing record the scraping backend
// reports. The backend only exposes one overall status plus free-text
// diagnostics; operators need to know which stage did what, and in particular
// whether "nothing here" means an empty tournament slot (no retry needed) or
// a failed fetch (retry needed). Derive encodes that reconciliation policy.
package pipeline

import (
	"github.com/pokerops/tourneytrack/pkg/models"
)

// StageStatus is the derived status of one pipeline stage
type StageStatus string

const (
	StagePending    StageStatus = "pending"     // Stage not started
	StageInProgress StageStatus = "in-progress" // Stage currently running
	StageSuccess    StageStatus = "success"     // Stage completed
	StageSkipped    StageStatus = "skipped"     // Stage deliberately bypassed
	StageError      StageStatus = "error"       // Stage failed
	StageNotNeeded  StageStatus = "not-needed"  // Stage unreachable (upstream failed or scrape-only run)
)

// SaveType classifies what kind of save the save stage performed
type SaveType string

const (
	SaveTypeNone        SaveType = "none"        // No save happened
	SaveTypeCreate      SaveType = "create"      // Fresh record created
	SaveTypeUpdate      SaveType = "update"      // Existing record updated
	SaveTypePlaceholder SaveType = "placeholder" // Placeholder record (empty/hidden slot or do-not-scrape)
)

// RetrieveState describes the fetch stage
type RetrieveState struct {
	Status  StageStatus       `json:"status"`
	Source  models.DataSource `json:"source"`
	Message string            `json:"message"`
}

// ParseState describes the parse stage
type ParseState struct {
	Status    StageStatus `json:"status"`
	Performed bool        `json:"performed"`
	Message   string      `json:"message"`
}

// SaveState describes the save stage
type SaveState struct {
	Status        StageStatus `json:"status"`
	SaveType      SaveType    `json:"save_type"`
	SavedRecordID string      `json:"saved_record_id,omitempty"`
	Message       string      `json:"message"`
}

// StoreState describes the snapshot-store stage
type StoreState struct {
	Status  StageStatus `json:"status"`
	Stored  bool        `json:"stored"`
	Message string      `json:"message"`
}

// PipelineState is the derived four-stage view of one processing record.
// It is pure UI/API-facing state: recomputed on every refresh, never persisted.
type PipelineState struct {
	Retrieve RetrieveState `json:"retrieve"`
	Parse    ParseState    `json:"parse"`
	Save     SaveState     `json:"save"`
	Store    StoreState    `json:"store"`

	// Unrecognized is set when the overall status was not a known value and
	// the all-pending default was applied. Callers should log these.
	Unrecognized bool `json:"unrecognized,omitempty"`
}

// signals holds the pre-classification computed once per derivation and
// reused across branches.
type signals struct {
	msg             MessageSignals
	isNotFound      bool
	isNotPublished  bool
	isPlaceholder   bool
	doNotScrape     bool
	snapshotKey     string
	effectiveSource models.DataSource
	fromS3          bool
	fromWeb         bool
	notRetrieved    bool
	hasSaveEvidence bool
}

func preclassify(rec models.ProcessingRecord) signals {
	var s signals
	s.msg = Classify(rec.Message)

	var gameStatus models.GameStatus
	if rec.ParsedPayload != nil {
		gameStatus = rec.ParsedPayload.GameStatus
		s.doNotScrape = rec.ParsedPayload.DoNotScrape
		s.snapshotKey = rec.ParsedPayload.SnapshotKey
	}
	s.doNotScrape = s.doNotScrape || s.msg.DoNotScrape

	s.isNotFound = s.msg.NotFound || gameStatus == models.GameStatusNotFound
	s.isNotPublished = s.msg.NotPublished || gameStatus == models.GameStatusNotPublished
	s.isPlaceholder = s.isNotFound || s.isNotPublished

	// A placeholder implies the page was fetched: something had to be read to
	// conclude the slot is empty or hidden. So an absent data source defaults
	// to web for placeholders, none otherwise.
	switch {
	case rec.DataSource != models.DataSourceUnset:
		s.effectiveSource = rec.DataSource
	case s.isPlaceholder:
		s.effectiveSource = models.DataSourceWeb
	default:
		s.effectiveSource = models.DataSourceNone
	}

	s.fromS3 = s.effectiveSource == models.DataSourceS3 || s.snapshotKey != ""
	s.fromWeb = s.effectiveSource == models.DataSourceWeb && s.snapshotKey == ""
	s.notRetrieved = s.effectiveSource == models.DataSourceNone ||
		(s.doNotScrape && !s.fromS3 && !s.fromWeb)

	s.hasSaveEvidence = rec.SaveResult != nil || rec.ExistingRecordID != ""
	return s
}

// retrievedSource picks the source label for a retrieve stage that succeeded
func (s signals) retrievedSource() models.DataSource {
	if s.fromS3 {
		return models.DataSourceS3
	}
	return models.DataSourceWeb
}

// Derive computes the four-stage pipeline state for one processing record.
// It is a total, pure function: every input maps to a fully-populated state,
// it never panics, and identical inputs always yield identical outputs.
// Unrecognized overall statuses resolve to the all-pending default with the
// Unrecognized flag set.
func Derive(rec models.ProcessingRecord) PipelineState {
	sig := preclassify(rec)

	switch rec.OverallStatus {
	case models.OverallStatusPending:
		return allPending(false)
	case models.OverallStatusScraping:
		return deriveScraping(rec)
	case models.OverallStatusSaving:
		return deriveSaving(rec, sig)
	case models.OverallStatusReview:
		return deriveReview(rec, sig)
	case models.OverallStatusSuccess, models.OverallStatusWarning:
		return deriveCompleted(rec, sig)
	case models.OverallStatusSkipped:
		return deriveSkipped(rec, sig)
	case models.OverallStatusError:
		return deriveError(rec, sig)
	default:
		return allPending(true)
	}
}

func allPending(unrecognized bool) PipelineState {
	return PipelineState{
		Retrieve:     RetrieveState{Status: StagePending, Source: models.DataSourcePending, Message: "Waiting to start"},
		Parse:        ParseState{Status: StagePending, Message: "Waiting for page content"},
		Save:         SaveState{Status: StagePending, SaveType: SaveTypeNone, Message: "Waiting for parsed data"},
		Store:        StoreState{Status: StagePending, Message: "Waiting for retrieval"},
		Unrecognized: unrecognized,
	}
}

func deriveScraping(rec models.ProcessingRecord) PipelineState {
	source := rec.DataSource
	if source == models.DataSourceUnset {
		source = models.DataSourceWeb
	}
	return PipelineState{
		Retrieve: RetrieveState{Status: StageInProgress, Source: source, Message: "Fetching page"},
		Parse:    ParseState{Status: StagePending, Message: "Waiting for page content"},
		Save:     SaveState{Status: StagePending, SaveType: SaveTypeNone, Message: "Waiting for parsed data"},
		Store:    StoreState{Status: StagePending, Message: "Waiting for retrieval"},
	}
}

func deriveSaving(rec models.ProcessingRecord, sig signals) PipelineState {
	return PipelineState{
		Retrieve: RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"},
		Parse:    ParseState{Status: StageSuccess, Performed: true, Message: "Parsed tournament data"},
		Save:     SaveState{Status: StageInProgress, SaveType: SaveTypeNone, Message: "Saving record"},
		Store:    storeForRetrieved(rec.DataSource == models.DataSourceWeb && sig.snapshotKey == ""),
	}
}

func deriveReview(rec models.ProcessingRecord, sig signals) PipelineState {
	return PipelineState{
		Retrieve: RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"},
		Parse:    ParseState{Status: StageSuccess, Performed: true, Message: "Parsed tournament data"},
		Save:     SaveState{Status: StagePending, SaveType: SaveTypeNone, Message: "Awaiting review confirmation"},
		Store:    storeForRetrieved(rec.DataSource == models.DataSourceWeb && sig.snapshotKey == ""),
	}
}

// storeForRetrieved maps a live-web fetch to a stored snapshot; anything else
// (cache hit, unknown source) means no new snapshot was written.
func storeForRetrieved(fromWeb bool) StoreState {
	if fromWeb {
		return StoreState{Status: StageSuccess, Stored: true, Message: "Snapshot stored"}
	}
	return StoreState{Status: StageSkipped, Message: "No new snapshot (cached or not fetched)"}
}

// deriveCompleted handles success and warning, which share the same stage
// reconstruction: the branch-heavy path, since a "successful" run may still
// have skipped retrieval, saved nothing, or parsed a placeholder slot.
func deriveCompleted(rec models.ProcessingRecord, sig signals) PipelineState {
	var st PipelineState

	if sig.notRetrieved && !sig.isPlaceholder {
		reason := "Nothing retrieved"
		if sig.doNotScrape {
			reason = "Do Not Scrape policy, fetch skipped"
		}
		st.Retrieve = RetrieveState{Status: StageSkipped, Source: models.DataSourceNone, Message: reason}
		st.Parse = ParseState{Status: StageSkipped, Performed: false, Message: "No content to parse"}
		st.Store = StoreState{Status: StageSkipped, Message: "Nothing to store"}
	} else {
		st.Retrieve = RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"}
		// Placeholders mean parsing SUCCEEDED at detecting an empty or hidden
		// slot. Marking them as parse failures is the exact misreading this
		// derivation exists to prevent.
		switch {
		case sig.isNotFound:
			st.Parse = ParseState{Status: StageSuccess, Performed: true, Message: "Empty slot (no tournament behind this page)"}
		case sig.isNotPublished:
			st.Parse = ParseState{Status: StageSuccess, Performed: true, Message: "Hidden event (not published by venue)"}
		default:
			st.Parse = ParseState{Status: StageSuccess, Performed: true, Message: "Parsed tournament data"}
		}
		if sig.fromS3 {
			st.Store = StoreState{Status: StageSkipped, Message: "Served from snapshot cache, not re-stored"}
		} else {
			st.Store = StoreState{Status: StageSuccess, Stored: true, Message: "Snapshot stored"}
		}
	}

	st.Save = deriveSave(rec, sig)
	return st
}

// deriveSave applies the save-evidence rule shared by the completed branches:
// a SaveResult or pre-existing record id proves a save happened; otherwise a
// placeholder had nothing to save and a real payload with no save evidence
// means a scrape-only run where saving was never attempted.
func deriveSave(rec models.ProcessingRecord, sig signals) SaveState {
	if sig.hasSaveEvidence {
		recordID := rec.ExistingRecordID
		if rec.SaveResult != nil {
			recordID = rec.SaveResult.RecordID
		}
		saveType := SaveTypeCreate
		switch {
		case sig.isPlaceholder || sig.doNotScrape:
			saveType = SaveTypePlaceholder
		case rec.SaveResult != nil && rec.SaveResult.Action == models.SaveActionUpdate:
			saveType = SaveTypeUpdate
		case rec.SaveResult == nil && rec.ExistingRecordID != "":
			// Prior record exists and no fresh save ran this cycle
			saveType = SaveTypeUpdate
		}
		return SaveState{Status: StageSuccess, SaveType: saveType, SavedRecordID: recordID, Message: "Record saved"}
	}

	if sig.isPlaceholder {
		return SaveState{Status: StageSkipped, SaveType: SaveTypeNone, Message: "Placeholder slot, nothing to save"}
	}
	return SaveState{Status: StageNotNeeded, SaveType: SaveTypeNone, Message: "Scrape-only run, save not attempted"}
}

// deriveSkipped disambiguates the overall "skipped" status: a placeholder
// skip (retrieve and parse still succeeded), a do-not-scrape skip (retrieve
// itself skipped), or a generic skip keyed on whether anything was retrieved.
func deriveSkipped(rec models.ProcessingRecord, sig signals) PipelineState {
	switch {
	case sig.isPlaceholder:
		var parse ParseState
		if sig.isNotFound {
			parse = ParseState{Status: StageSuccess, Performed: true, Message: "Empty slot (no tournament behind this page)"}
		} else {
			parse = ParseState{Status: StageSuccess, Performed: true, Message: "Hidden event (not published by venue)"}
		}
		st := PipelineState{
			Retrieve: RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"},
			Parse:    parse,
			Save:     SaveState{Status: StageSkipped, SaveType: SaveTypeNone, Message: "Placeholder slot, save skipped"},
		}
		if sig.fromS3 {
			st.Store = StoreState{Status: StageSkipped, Message: "Served from snapshot cache, not re-stored"}
		} else {
			st.Store = StoreState{Status: StageSuccess, Stored: true, Message: "Snapshot stored"}
		}
		return st

	case sig.doNotScrape:
		return PipelineState{
			Retrieve: RetrieveState{Status: StageSkipped, Source: models.DataSourceNone, Message: "Do Not Scrape policy, fetch skipped"},
			Parse:    ParseState{Status: StageSkipped, Performed: false, Message: "No content to parse"},
			Save:     SaveState{Status: StageSkipped, SaveType: SaveTypeNone, Message: "Nothing to save"},
			Store:    StoreState{Status: StageSkipped, Message: "Nothing to store"},
		}

	case sig.effectiveSource == models.DataSourceS3 || sig.effectiveSource == models.DataSourceWeb:
		// Retrieved, then deliberately not processed further
		st := PipelineState{
			Retrieve: RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"},
			Parse:    ParseState{Status: StageSkipped, Performed: false, Message: "Processing skipped"},
			Save:     SaveState{Status: StageSkipped, SaveType: SaveTypeNone, Message: "Processing skipped"},
		}
		if sig.fromS3 {
			st.Store = StoreState{Status: StageSkipped, Message: "Served from snapshot cache, not re-stored"}
		} else {
			st.Store = StoreState{Status: StageSuccess, Stored: true, Message: "Snapshot stored"}
		}
		return st

	default:
		return PipelineState{
			Retrieve: RetrieveState{Status: StageSkipped, Source: models.DataSourceNone, Message: "Skipped before retrieval"},
			Parse:    ParseState{Status: StageSkipped, Performed: false, Message: "No content to parse"},
			Save:     SaveState{Status: StageSkipped, SaveType: SaveTypeNone, Message: "Nothing to save"},
			Store:    StoreState{Status: StageSkipped, Message: "Nothing to store"},
		}
	}
}

// deriveError locates the failing stage from message keywords. Save markers
// win over fetch markers (a failed save is reported after a completed fetch),
// and "not found" only reads as a fetch failure when the parsed payload does
// not confirm a genuine empty-slot placeholder. Anything unclassified is
// treated as a parse failure.
func deriveError(rec models.ProcessingRecord, sig signals) PipelineState {
	message := rec.Message
	if message == "" {
		message = "Processing failed"
	}

	var payloadConfirmsPlaceholder bool
	if rec.ParsedPayload != nil {
		payloadConfirmsPlaceholder = rec.ParsedPayload.GameStatus.IsPlaceholder()
	}

	switch {
	case sig.msg.SaveError:
		return PipelineState{
			Retrieve: RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"},
			Parse:    ParseState{Status: StageSuccess, Performed: true, Message: "Parsed tournament data"},
			Save:     SaveState{Status: StageError, SaveType: SaveTypeNone, Message: message},
			Store:    StoreState{Status: StageNotNeeded, Message: "Save failed"},
		}

	case sig.msg.FetchError || (sig.msg.NotFound && !payloadConfirmsPlaceholder):
		return PipelineState{
			Retrieve: RetrieveState{Status: StageError, Source: sig.effectiveSource, Message: message},
			Parse:    ParseState{Status: StageNotNeeded, Performed: false, Message: "Retrieval failed"},
			Save:     SaveState{Status: StageNotNeeded, SaveType: SaveTypeNone, Message: "Retrieval failed"},
			Store:    StoreState{Status: StageNotNeeded, Message: "Retrieval failed"},
		}

	default:
		return PipelineState{
			Retrieve: RetrieveState{Status: StageSuccess, Source: sig.retrievedSource(), Message: "Page retrieved"},
			Parse:    ParseState{Status: StageError, Performed: true, Message: message},
			Save:     SaveState{Status: StageNotNeeded, SaveType: SaveTypeNone, Message: "Parse failed"},
			Store:    StoreState{Status: StageNotNeeded, Message: "Parse failed"},
		}
	}
}
