package sqlc

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"
)

// TimestampLayout is how timestamps are stored: UTC with millisecond precision,
// matching strftime('%Y-%m-%d %H:%M:%f') so stored values sort as text.
const TimestampLayout = "2006-01-02 15:04:05.000"

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type Image struct {
	ID          int64
	Uri         string
	Latitude    sql.NullFloat64
	Longitude   sql.NullFloat64
	Timestamp   Timestamp
	Description sql.NullString
}

// Timestamp scans the timestamp column whether the driver hands it over
// already parsed or as text.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Timestamp", src)
}

func (t *Timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t Timestamp) Value() (driver.Value, error) {
	return t.UTC().Format(TimestampLayout), nil
}
