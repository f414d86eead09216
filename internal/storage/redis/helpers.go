package redis

import (
	"strconv"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/storage"
)

const keyPrefix = "frms:"

func recordKey(id string) string {
	return keyPrefix + "record:" + id
}

func indexKey(pilotID string) string {
	return keyPrefix + "records:pilot:" + pilotID
}

func undatedKey(pilotID string) string {
	return indexKey(pilotID) + ":undated"
}

func revisionKey(pilotID string) string {
	return keyPrefix + "revision:" + pilotID
}

func changesChannel(pilotID string) string {
	return keyPrefix + "changes:" + pilotID
}

// encodeRecord flattens a record into hash field/value pairs.
func encodeRecord(r frms.Record) []interface{} {
	date := ""
	if r.Dated() {
		date = r.Date.Format(time.RFC3339Nano)
	}

	flight := ""
	if r.FlightTime != nil {
		flight = strconv.FormatFloat(*r.FlightTime, 'f', -1, 64)
	}

	return []interface{}{
		"id", r.ID,
		"pilot_id", r.PilotID,
		"date", date,
		"duty_start", formatTime(r.DutyStart),
		"duty_end", formatTime(r.DutyEnd),
		"scheduled_start", formatTime(r.ScheduledStart),
		"scheduled_end", formatTime(r.ScheduledEnd),
		"flight_time", flight,
		"fleet", string(r.Fleet),
		"positioning", strconv.FormatBool(r.Positioning),
		"departure", r.Departure,
		"arrival", r.Arrival,
	}
}

// parseRecord converts a Redis hash to a Record. Records are written by the
// logbook as well as by this package, so unparseable optional fields decode
// as absent and an unparseable date decodes as the zero date.
func parseRecord(data map[string]string) (*frms.Record, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	r := &frms.Record{
		ID:             data["id"],
		PilotID:        data["pilot_id"],
		Date:           parseDate(data["date"]),
		DutyStart:      parseTime(data["duty_start"]),
		DutyEnd:        parseTime(data["duty_end"]),
		ScheduledStart: parseTime(data["scheduled_start"]),
		ScheduledEnd:   parseTime(data["scheduled_end"]),
		Fleet:          frms.Fleet(data["fleet"]),
		Departure:      data["departure"],
		Arrival:        data["arrival"],
	}

	if flight, ok := storage.ParseHours(data["flight_time"]); ok {
		r.FlightTime = &flight
	}

	if v := data["positioning"]; v != "" {
		positioning, _ := strconv.ParseBool(v)
		r.Positioning = positioning
	}

	return r, nil
}

func parseDate(v string) time.Time {
	t, _ := storage.ParseTime(v)
	return t
}

func parseTime(v string) *time.Time {
	t, ok := storage.ParseTime(v)
	if !ok {
		return nil
	}
	return &t
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
