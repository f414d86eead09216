// Package recordfile is a read-only record store backed by a JSON or YAML
// logbook export, for evaluating a pilot without a running Redis.
package recordfile

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// fileRecord is the on-disk shape. Scalars are decoded as text so that a
// malformed value degrades one field instead of failing the file.
type fileRecord struct {
	ID             string `yaml:"id"`
	PilotID        string `yaml:"pilot_id"`
	Date           string `yaml:"date"`
	DutyStart      string `yaml:"duty_start"`
	DutyEnd        string `yaml:"duty_end"`
	ScheduledStart string `yaml:"scheduled_start"`
	ScheduledEnd   string `yaml:"scheduled_end"`
	FlightTime     string `yaml:"flight_time"`
	Fleet          string `yaml:"fleet"`
	Positioning    string `yaml:"positioning"`
	Departure      string `yaml:"departure"`
	Arrival        string `yaml:"arrival"`
}

// Store holds every record of one file in memory.
type Store struct {
	path     string
	records  []frms.Record
	byID     map[string]int
	revision int64
}

// Open reads and decodes a records file. Records without a pilot are
// assigned defaultPilot; records without an ID get a generated one.
func Open(path, defaultPilot string, logger zerolog.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	records, err := Parse(data, defaultPilot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	h := fnv.New64a()
	_, _ = h.Write(data)

	s := &Store{
		path:     path,
		records:  records,
		byID:     make(map[string]int, len(records)),
		revision: int64(h.Sum64() >> 1),
	}
	for i, r := range records {
		s.byID[r.ID] = i
	}

	log := logger.With().Str("component", "recordfile").Logger()
	log.Debug().
		Str("path", path).
		Int("records", len(records)).
		Msg("Loaded records file")

	return s, nil
}

// Parse decodes a JSON or YAML sequence of records.
func Parse(data []byte, defaultPilot string) ([]frms.Record, error) {
	var raw []fileRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	records := make([]frms.Record, 0, len(raw))
	for _, fr := range raw {
		records = append(records, fr.record(defaultPilot))
	}
	return records, nil
}

// ParseRecord decodes a single JSON or YAML record.
func ParseRecord(data []byte, defaultPilot string) (frms.Record, error) {
	var fr fileRecord
	if err := yaml.Unmarshal(data, &fr); err != nil {
		return frms.Record{}, err
	}
	return fr.record(defaultPilot), nil
}

func (fr fileRecord) record(defaultPilot string) frms.Record {
	r := frms.Record{
		ID:             strings.TrimSpace(fr.ID),
		PilotID:        strings.TrimSpace(fr.PilotID),
		DutyStart:      optionalTime(fr.DutyStart),
		DutyEnd:        optionalTime(fr.DutyEnd),
		ScheduledStart: optionalTime(fr.ScheduledStart),
		ScheduledEnd:   optionalTime(fr.ScheduledEnd),
		Fleet:          frms.Fleet(strings.TrimSpace(fr.Fleet)),
		Departure:      strings.TrimSpace(fr.Departure),
		Arrival:        strings.TrimSpace(fr.Arrival),
	}

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.PilotID == "" {
		r.PilotID = defaultPilot
	}
	if date, ok := storage.ParseTime(fr.Date); ok {
		r.Date = date
	}
	if flight, ok := storage.ParseHours(fr.FlightTime); ok {
		r.FlightTime = &flight
	}
	if positioning, err := strconv.ParseBool(strings.TrimSpace(fr.Positioning)); err == nil {
		r.Positioning = positioning
	}

	return r
}

func optionalTime(v string) *time.Time {
	t, ok := storage.ParseTime(v)
	if !ok {
		return nil
	}
	return &t
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Records returns the store itself; it is its own RecordStore.
func (s *Store) Records() storage.RecordStore {
	return s
}

// Upsert is not supported.
func (s *Store) Upsert(ctx context.Context, record frms.Record) error {
	return fmt.Errorf("cannot write record %s to %s: %w", record.ID, s.path, storage.ErrReadOnly)
}

// Delete is not supported.
func (s *Store) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("cannot delete record %s from %s: %w", id, s.path, storage.ErrReadOnly)
}

// Get retrieves a record by ID
func (s *Store) Get(ctx context.Context, id string) (*frms.Record, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	r := s.records[i]
	return &r, nil
}

// ListByPilot returns the pilot's records dated from..to plus all undated ones
func (s *Store) ListByPilot(ctx context.Context, pilotID string, from, to time.Time) ([]frms.Record, error) {
	first, last := frms.DayNumber(from), frms.DayNumber(to)

	out := make([]frms.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.PilotID != pilotID {
			continue
		}
		if r.Dated() {
			if day := frms.DayNumber(r.Date); day < first || day > last {
				continue
			}
		}
		out = append(out, r)
	}

	storage.SortRecords(out)
	return out, nil
}

// Revision is derived from the file content, so it is stable for one file.
func (s *Store) Revision(ctx context.Context, pilotID string) (int64, error) {
	return s.revision, nil
}
