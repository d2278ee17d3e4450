package history

import (
	"encoding/json"
	"strconv"
	"time"
)

// Legacy display layouts once used for persisted timestamps. Kept so old
// records still load; new records always store epoch seconds.
var legacyTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 @ 15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is a point in time persisted as POSIX epoch seconds.
type Timestamp struct {
	time.Time
}

// At wraps t as a Timestamp, truncated to second precision.
func At(t time.Time) Timestamp {
	return Timestamp{t.Truncate(time.Second)}
}

// Equal compares two timestamps at second precision.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.Unix() == other.Unix()
}

// MarshalJSON encodes the timestamp as epoch seconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(t.Unix(), 10)), nil
}

// UnmarshalJSON accepts epoch seconds, RFC3339, or the legacy display
// layouts. An unparseable value decodes to the zero Timestamp rather than
// failing the whole record.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*t = Timestamp{}
		return nil
	}

	if epoch, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		if epoch <= 0 {
			*t = Timestamp{}
			return nil
		}
		*t = Timestamp{time.Unix(epoch, 0)}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range legacyTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*t = Timestamp{parsed}
			return nil
		}
	}
	*t = Timestamp{}
	return nil
}

// ViewState remembers where a file sat in the host's layout so it can be
// reopened in place: the tab group and the tab index within that group.
type ViewState struct {
	Group int `json:"group"`
	Index int `json:"index"`
}

// Entry is one tracked file access.
type Entry struct {
	Path       string     `json:"path"`
	LastAccess Timestamp  `json:"last_access_time"`
	ViewState  *ViewState `json:"view_state,omitempty"`
}

// entryJSON carries both the current keys and the flat legacy keys
// ("filename", "group", "index", "timestamp") so either shape decodes.
type entryJSON struct {
	Path       string     `json:"path"`
	LastAccess *Timestamp `json:"last_access_time"`
	ViewState  *ViewState `json:"view_state"`

	LegacyPath  string     `json:"filename"`
	LegacyStamp *Timestamp `json:"timestamp"`
	LegacyGroup *int       `json:"group"`
	LegacyIndex *int       `json:"index"`
}

// UnmarshalJSON decodes an entry, lifting legacy flat fields when present.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Path = raw.Path
	if e.Path == "" {
		e.Path = raw.LegacyPath
	}

	switch {
	case raw.LastAccess != nil:
		e.LastAccess = *raw.LastAccess
	case raw.LegacyStamp != nil:
		e.LastAccess = *raw.LegacyStamp
	default:
		e.LastAccess = Timestamp{}
	}

	e.ViewState = raw.ViewState
	if e.ViewState == nil && raw.LegacyGroup != nil && raw.LegacyIndex != nil {
		// (-1, -1) marked a transient view with no real position.
		if *raw.LegacyGroup >= 0 || *raw.LegacyIndex >= 0 {
			e.ViewState = &ViewState{Group: *raw.LegacyGroup, Index: *raw.LegacyIndex}
		}
	}

	return nil
}

// clone returns a copy safe to hand out; ViewState is duplicated so callers
// cannot mutate stored state.
func (e Entry) clone() Entry {
	out := e
	if e.ViewState != nil {
		vs := *e.ViewState
		out.ViewState = &vs
	}
	return out
}

func cloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out
}
