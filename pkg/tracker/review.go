package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// Approve confirms a game awaiting review: its parsed payload becomes a saved
// tournament record and the game's processing record moves to success with
// the resulting save evidence. Placeholder payloads save placeholder records.
func (t *Tracker) Approve(gameID string) (*models.TournamentRecord, error) {
	game, err := t.store.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if game.Processing.OverallStatus != models.OverallStatusReview {
		return nil, fmt.Errorf("%w: game '%s' is not awaiting review (status '%s')",
			utils.ErrInvalidInput, gameID, game.Processing.OverallStatus)
	}
	payload := game.Processing.ParsedPayload
	if payload == nil {
		return nil, fmt.Errorf("%w: game '%s' has no parsed payload to approve", utils.ErrInvalidInput, gameID)
	}

	now := time.Now().UTC()
	action := models.SaveActionCreate
	recordID := game.Processing.ExistingRecordID
	if recordID != "" {
		action = models.SaveActionUpdate
	} else {
		recordID = uuid.NewString()
	}

	rec := &models.TournamentRecord{
		ID:          recordID,
		GameID:      game.ID,
		VenueKey:    game.VenueKey,
		SeriesKey:   game.SeriesKey,
		EventNumber: game.EventNumber,
		Placeholder: payload.GameStatus.IsPlaceholder() || payload.DoNotScrape,

		Name:           payload.Name,
		GameType:       payload.GameType,
		BuyInCents:     payload.BuyInCents,
		StartTime:      payload.StartTime,
		Entrants:       payload.Entrants,
		PrizePoolCents: payload.PrizePoolCents,

		CreatedAt: now,
	}
	if action == models.SaveActionUpdate {
		if existing, getErr := t.store.GetRecord(recordID); getErr == nil {
			rec.CreatedAt = existing.CreatedAt
		} else if !errors.Is(getErr, utils.ErrNotFound) {
			return nil, getErr
		}
		rec.UpdatedAt = now
	}

	if putErr := t.store.PutRecord(rec); putErr != nil {
		return nil, putErr
	}

	game.Processing.OverallStatus = models.OverallStatusSuccess
	game.Processing.Message = fmt.Sprintf("Approved: record %s (%s)", rec.ID, action)
	game.Processing.SaveResult = &models.SaveResult{Action: action, RecordID: rec.ID}
	game.Processing.ExistingRecordID = rec.ID
	game.RefreshedAt = now
	if putErr := t.store.PutGame(game); putErr != nil {
		return nil, putErr
	}

	t.log.WithField("game_id", game.ID).WithField("record_id", rec.ID).
		Infof("Approved review (%s)", action)
	return rec, nil
}

// Reject discards a game's pending review: nothing is saved and the game is
// marked skipped until the next scrape produces a fresh payload.
func (t *Tracker) Reject(gameID string) error {
	game, err := t.store.GetGame(gameID)
	if err != nil {
		return err
	}
	if game.Processing.OverallStatus != models.OverallStatusReview {
		return fmt.Errorf("%w: game '%s' is not awaiting review (status '%s')",
			utils.ErrInvalidInput, gameID, game.Processing.OverallStatus)
	}

	game.Processing.OverallStatus = models.OverallStatusSkipped
	game.Processing.Message = "Rejected by operator"
	game.Processing.SaveResult = nil
	game.RefreshedAt = time.Now().UTC()
	if putErr := t.store.PutGame(game); putErr != nil {
		return putErr
	}

	t.log.WithField("game_id", game.ID).Info("Rejected review")
	return nil
}
