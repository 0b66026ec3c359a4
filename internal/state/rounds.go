package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// RoundStatus is a round's ledger status: active, or the round's outcome.
type RoundStatus string

// RoundActive marks a round that has not finished.
const RoundActive RoundStatus = "active"

// StatusFromOutcome converts a finished round's outcome.
func StatusFromOutcome(o models.RoundOutcome) RoundStatus {
	return RoundStatus(o)
}

// Round is one validation round.
type Round struct {
	ID         string      `json:"id"`
	TargetPath string      `json:"target_path"`
	Prompt     string      `json:"prompt"`
	Status     RoundStatus `json:"status"`
	PID        int         `json:"pid"`
	Candidates int         `json:"candidates"`
	WinnerID   int         `json:"winner_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at"`
}

// RoundWorkspace is a workspace created by a round.
type RoundWorkspace struct {
	RoundID     string     `json:"round_id"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Branch      string     `json:"branch"`
	CreatedAt   time.Time  `json:"created_at"`
	DestroyedAt *time.Time `json:"destroyed_at"`
}

// StartRound inserts an active round.
func (db *DB) StartRound(r *Round) error {
	if r.Status == "" {
		r.Status = RoundActive
	}
	_, err := db.Exec(`
		INSERT INTO rounds (id, target_path, prompt, status, pid, candidates, winner_id, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.TargetPath, r.Prompt, string(r.Status), r.PID, r.Candidates, r.WinnerID, formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	return nil
}

// SetCandidateCount records how many candidates the round validates.
func (db *DB) SetCandidateCount(id string, n int) error {
	_, err := db.Exec("UPDATE rounds SET candidates = ? WHERE id = ?", n, id)
	if err != nil {
		return fmt.Errorf("set candidate count: %w", err)
	}
	return nil
}

// FinishRound closes a round with its final status.
func (db *DB) FinishRound(id string, status RoundStatus, winnerID int) error {
	result, err := db.Exec(`
		UPDATE rounds SET status = ?, winner_id = ?, finished_at = ? WHERE id = ?
	`, string(status), winnerID, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finish round: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("finish round: unknown round %s", id)
	}
	return nil
}

// GetRound retrieves a round by ID. Returns nil, nil when absent.
func (db *DB) GetRound(id string) (*Round, error) {
	row := db.QueryRow(`
		SELECT id, target_path, prompt, status, pid, candidates, winner_id, started_at, finished_at
		FROM rounds WHERE id = ?
	`, id)

	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}
	return r, nil
}

// ListRounds returns the most recent rounds first. limit <= 0 means all.
func (db *DB) ListRounds(limit int) ([]Round, error) {
	query := `
		SELECT id, target_path, prompt, status, pid, candidates, winner_id, started_at, finished_at
		FROM rounds ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return db.queryRounds(query, args...)
}

// ActiveRounds returns rounds that never finished.
func (db *DB) ActiveRounds() ([]Round, error) {
	return db.queryRounds(`
		SELECT id, target_path, prompt, status, pid, candidates, winner_id, started_at, finished_at
		FROM rounds WHERE status = ? ORDER BY started_at
	`, string(RoundActive))
}

func (db *DB) queryRounds(query string, args ...any) ([]Round, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(s scanner) (*Round, error) {
	var r Round
	var startedAt string
	var finishedAt sql.NullString
	if err := s.Scan(&r.ID, &r.TargetPath, &r.Prompt, &r.Status, &r.PID, &r.Candidates, &r.WinnerID, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

// RecordWorkspace notes a workspace created for a round.
func (db *DB) RecordWorkspace(roundID string, ws models.Workspace) error {
	createdAt := ws.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT OR REPLACE INTO round_workspaces (round_id, name, path, branch, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, roundID, ws.Name, ws.Root, ws.Branch, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("record workspace: %w", err)
	}
	return nil
}

// MarkWorkspaceDestroyed stamps a workspace as removed.
func (db *DB) MarkWorkspaceDestroyed(roundID, name string) error {
	_, err := db.Exec(`
		UPDATE round_workspaces SET destroyed_at = ?
		WHERE round_id = ? AND name = ? AND destroyed_at IS NULL
	`, formatTime(time.Now()), roundID, name)
	if err != nil {
		return fmt.Errorf("mark workspace destroyed: %w", err)
	}
	return nil
}

// LiveWorkspaces lists a round's workspaces not yet destroyed. An empty
// roundID lists them across all rounds.
func (db *DB) LiveWorkspaces(roundID string) ([]RoundWorkspace, error) {
	query := `
		SELECT round_id, name, path, branch, created_at, destroyed_at
		FROM round_workspaces WHERE destroyed_at IS NULL
	`
	var args []any
	if roundID != "" {
		query += " AND round_id = ?"
		args = append(args, roundID)
	}
	query += " ORDER BY round_id, name"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []RoundWorkspace
	for rows.Next() {
		var w RoundWorkspace
		var createdAt string
		var destroyedAt sql.NullString
		if err := rows.Scan(&w.RoundID, &w.Name, &w.Path, &w.Branch, &createdAt, &destroyedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		w.CreatedAt, _ = parseTime(createdAt)
		w.DestroyedAt = parseNullableTime(destroyedAt)
		out = append(out, w)
	}
	return out, rows.Err()
}
