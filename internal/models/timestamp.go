package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"ainews/aggregator/internal/normalize"
)

// Timestamp reads any ISO-8601 date or date-time, including date-only
// values such as "2025-01-02", and writes RFC 3339. Values without a zone
// are UTC.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON decodes null and "" into the zero time. Strings no layout
// matches are an error.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}

	parsed, ok := normalize.ParseDate(s)
	if !ok {
		return fmt.Errorf("unrecognised timestamp %q", s)
	}
	t.Time = parsed
	return nil
}

// The data files are written by earlier versions and by hand, so their
// timestamps go through Timestamp on the way in. Output stays RFC 3339
// through time.Time.

func (s *NewsSummary) UnmarshalJSON(data []byte) error {
	type alias NewsSummary
	aux := struct {
		*alias
		CreatedAt Timestamp `json:"createdAt"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.CreatedAt = aux.CreatedAt.Time
	return nil
}

func (d *NewsData) UnmarshalJSON(data []byte) error {
	type alias NewsData
	aux := struct {
		*alias
		GeneratedAt Timestamp `json:"generatedAt"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.GeneratedAt = aux.GeneratedAt.Time
	return nil
}

func (d *ArchiveData) UnmarshalJSON(data []byte) error {
	type alias ArchiveData
	aux := struct {
		*alias
		ArchivedAt Timestamp `json:"archivedAt"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.ArchivedAt = aux.ArchivedAt.Time
	return nil
}

func (st *NewsStats) UnmarshalJSON(data []byte) error {
	type alias NewsStats
	aux := struct {
		*alias
		LastUpdated Timestamp `json:"lastUpdated"`
	}{alias: (*alias)(st)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	st.LastUpdated = aux.LastUpdated.Time
	return nil
}
