package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines persistence for settings records. The record is a
// pure struct; this interface owns the row shape.
type Repository interface {
	// Get retrieves the record for a device.
	// Returns ErrRecordNotFound if no record exists.
	Get(ctx context.Context, deviceID int64) (*Record, error)

	// Save upserts the full record in one statement.
	Save(ctx context.Context, rec *Record) error
}

// SQLiteRepository implements Repository using SQLite. The row layout is
// one current column plus one "_pending" column per slot; both column
// lists below are generated from the slot table so schema and code cannot
// drift apart.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed settings repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var (
	selectQuery = buildSelectQuery()
	upsertQuery = buildUpsertQuery()
)

func slotColumns() []string {
	cols := make([]string, 0, 2*len(slotTable))
	for _, def := range slotTable {
		cols = append(cols, def.Name, def.Name+"_pending")
	}
	return cols
}

func buildSelectQuery() string {
	cols := append([]string{"last_sync_at", "sync_status"}, slotColumns()...)
	return "SELECT " + strings.Join(cols, ", ") + " FROM device_settings WHERE device_id = ?"
}

func buildUpsertQuery() string {
	cols := append([]string{"device_id", "last_sync_at", "sync_status"}, slotColumns()...)

	assignments := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		assignments = append(assignments, col+" = excluded."+col)
	}

	return "INSERT INTO device_settings (" + strings.Join(cols, ", ") + ")" +
		" VALUES (?" + strings.Repeat(", ?", len(cols)-1) + ")" +
		" ON CONFLICT(device_id) DO UPDATE SET " + strings.Join(assignments, ", ")
}

// Get retrieves the record for a device.
func (r *SQLiteRepository) Get(ctx context.Context, deviceID int64) (*Record, error) {
	var lastSync sql.NullString
	var status string

	holders := make([]any, 2*len(slotTable))
	dests := make([]any, 0, 2+len(holders))
	dests = append(dests, &lastSync, &status)
	for i, def := range slotTable {
		for j := 0; j < 2; j++ {
			var h any
			if def.Kind == KindString {
				h = new(sql.NullString)
			} else {
				h = new(sql.NullInt64)
			}
			holders[2*i+j] = h
			dests = append(dests, h)
		}
	}

	err := r.db.QueryRowContext(ctx, selectQuery, deviceID).Scan(dests...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying settings record: %w", err)
	}

	rec := &Record{
		DeviceID:   deviceID,
		Slots:      make([]Slot, len(slotTable)),
		SyncStatus: SyncStatus(status),
	}
	if lastSync.Valid {
		t, err := time.Parse(time.RFC3339, lastSync.String)
		if err == nil {
			rec.LastSyncAt = &t
		}
	}
	for i, def := range slotTable {
		rec.Slots[i] = Slot{
			Name:    def.Name,
			Current: holderValue(def, holders[2*i]),
			Pending: holderValue(def, holders[2*i+1]),
		}
	}
	return rec, nil
}

// Save upserts the full record.
func (r *SQLiteRepository) Save(ctx context.Context, rec *Record) error {
	args := make([]any, 0, 3+2*len(slotTable))
	args = append(args, rec.DeviceID)
	if rec.LastSyncAt != nil {
		args = append(args, rec.LastSyncAt.UTC().Format(time.RFC3339))
	} else {
		args = append(args, nil)
	}
	args = append(args, string(rec.SyncStatus))

	for _, def := range slotTable {
		slot := rec.Slot(def.Name)
		if slot == nil {
			args = append(args, driverValue(def.Default), nil)
			continue
		}
		args = append(args, driverValue(slot.Current), driverValue(slot.Pending))
	}

	if _, err := r.db.ExecContext(ctx, upsertQuery, args...); err != nil {
		return fmt.Errorf("saving settings record: %w", err)
	}
	return nil
}

// holderValue converts a scanned nullable column back to the slot's
// canonical value type.
func holderValue(def SlotDef, h any) any {
	switch def.Kind {
	case KindString:
		ns := h.(*sql.NullString)
		if !ns.Valid {
			return nil
		}
		return ns.String
	case KindInt:
		ni := h.(*sql.NullInt64)
		if !ni.Valid {
			return nil
		}
		return ni.Int64
	case KindBool:
		ni := h.(*sql.NullInt64)
		if !ni.Valid {
			return nil
		}
		return ni.Int64 != 0
	}
	return nil
}

// driverValue converts a canonical slot value to what the driver stores.
// Booleans are stored as 0/1 integers.
func driverValue(v any) any {
	b, ok := v.(bool)
	if !ok {
		return v
	}
	if b {
		return int64(1)
	}
	return int64(0)
}
