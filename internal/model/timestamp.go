package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Timestamp is an instant persisted as unix milliseconds so that ordering and
// range comparisons behave the same on SQLite and Postgres.
type Timestamp struct {
	time.Time
}

// Now returns the current instant truncated to millisecond precision.
func Now() Timestamp {
	return At(time.Now())
}

// At converts t to a Timestamp at millisecond precision.
func At(t time.Time) Timestamp {
	return Timestamp{Time: time.UnixMilli(t.UnixMilli()).UTC()}
}

// Millis returns the unix millisecond value stored in the database.
func (t Timestamp) Millis() int64 {
	return t.UnixMilli()
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	return t.UnixMilli(), nil
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		t.Time = time.UnixMilli(v).UTC()
	case nil:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("timestamp: unsupported source type %T", src)
	}
	return nil
}
