package services

import (
	"context"
	"database/sql"
	"fmt"
)

// roomForTournament names the websocket room for a tournament.
func roomForTournament(tournamentID int) string {
	return fmt.Sprintf("tournament:%d", tournamentID)
}

func checkinDedupeKey(matchID, recipientID int) string {
	return fmt.Sprintf("checkin_open:%d:%d", matchID, recipientID)
}

// runInTx runs fn inside a transaction with a rollback-on-error,
// commit-on-success contract.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return fn(nil)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = fn(tx); txErr != nil {
		return txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", txErr)
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
