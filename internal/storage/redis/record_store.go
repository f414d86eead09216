package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	upsertRecord = redis.NewScript(upsertRecordScript)
	deleteRecord = redis.NewScript(deleteRecordScript)
)

type recordStore struct {
	client *redis.Client
}

// Upsert creates or replaces a record. A record without an ID is assigned one.
func (s *recordStore) Upsert(ctx context.Context, record frms.Record) error {
	if record.PilotID == "" {
		return fmt.Errorf("record %q has no pilot", record.ID)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	day := ""
	if record.Dated() {
		day = strconv.FormatInt(frms.DayNumber(record.Date), 10)
	}

	keys := []string{
		recordKey(record.ID),
		indexKey(record.PilotID),
		undatedKey(record.PilotID),
		revisionKey(record.PilotID),
	}
	args := append([]interface{}{record.ID, record.PilotID, day, keyPrefix}, encodeRecord(record)...)

	if err := upsertRecord.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", record.ID, err)
	}
	return nil
}

// Get retrieves a record by ID
func (s *recordStore) Get(ctx context.Context, id string) (*frms.Record, error) {
	data, err := s.client.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return parseRecord(data)
}

// Delete removes a record by ID
func (s *recordStore) Delete(ctx context.Context, id string) error {
	deleted, err := deleteRecord.Run(ctx, s.client, []string{recordKey(id)}, id, keyPrefix).Int()
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByPilot returns the pilot's records dated from..to plus all undated ones
func (s *recordStore) ListByPilot(ctx context.Context, pilotID string, from, to time.Time) ([]frms.Record, error) {
	dated, err := s.client.ZRangeByScore(ctx, indexKey(pilotID), &redis.ZRangeBy{
		Min: strconv.FormatInt(frms.DayNumber(from), 10),
		Max: strconv.FormatInt(frms.DayNumber(to), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range records for pilot %s: %w", pilotID, err)
	}

	undated, err := s.client.SMembers(ctx, undatedKey(pilotID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list undated records for pilot %s: %w", pilotID, err)
	}

	ids := append(dated, undated...)
	if len(ids) == 0 {
		return []frms.Record{}, nil
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, recordKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load records for pilot %s: %w", pilotID, err)
	}

	records := make([]frms.Record, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		record, err := parseRecord(data)
		if err != nil {
			continue
		}
		records = append(records, *record)
	}

	storage.SortRecords(records)
	return records, nil
}

// Revision returns the pilot's change counter, zero before the first write
func (s *recordStore) Revision(ctx context.Context, pilotID string) (int64, error) {
	rev, err := s.client.Get(ctx, revisionKey(pilotID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get revision for pilot %s: %w", pilotID, err)
	}
	return rev, nil
}
