package history

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Record is the persisted shape of a store: the global sequence plus one
// sequence per project key, each most-recent-first.
type Record struct {
	Global   []Entry            `json:"global"`
	Projects map[string][]Entry `json:"projects"`
}

// legacyScope is the per-scope shape written by old history files:
// separate opened/closed lists under every top-level key, "global" included.
type legacyScope struct {
	Opened []Entry `json:"opened"`
	Closed []Entry `json:"closed"`
}

// DecodeRecord parses a persisted record. Both the current shape
// ({"global": [...], "projects": {...}}) and the legacy shape
// ({scopeKey: {"opened": [...], "closed": [...]}}) are accepted; migrated
// reports whether a legacy record was converted, so callers know to rewrite
// it on the next save.
func DecodeRecord(data []byte) (rec *Record, migrated bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Record{Projects: map[string][]Entry{}}, false, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, false, err
	}

	if isLegacyRecord(raw) {
		rec, err := decodeLegacyRecord(raw)
		return rec, err == nil, err
	}

	var r Record
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, false, err
	}
	if r.Projects == nil {
		r.Projects = map[string][]Entry{}
	}
	return &r, false, nil
}

// isLegacyRecord detects the old format: the "global" value is an object
// (opened/closed lists) instead of an array, or project scopes sit at the
// top level instead of under "projects".
func isLegacyRecord(raw map[string]json.RawMessage) bool {
	if g, ok := raw["global"]; ok {
		t := strings.TrimLeft(string(g), " \t\r\n")
		return strings.HasPrefix(t, "{")
	}
	if _, ok := raw["projects"]; ok {
		return false
	}
	return len(raw) > 0
}

func decodeLegacyRecord(raw map[string]json.RawMessage) (*Record, error) {
	rec := &Record{Projects: map[string][]Entry{}}

	for key, val := range raw {
		var scope legacyScope
		if err := json.Unmarshal(val, &scope); err != nil {
			// An unreadable scope is dropped rather than failing the
			// whole migration.
			continue
		}
		merged := mergeLegacyLists(scope.Closed, scope.Opened)
		if key == "global" {
			rec.Global = merged
		} else {
			rec.Projects[key] = merged
		}
	}

	return rec, nil
}

// mergeLegacyLists collapses the old opened/closed split into a single
// most-recent-first sequence, deduplicated by path (latest access wins).
func mergeLegacyLists(lists ...[]Entry) []Entry {
	var all []Entry
	for _, list := range lists {
		for _, e := range list {
			if e.Path != "" {
				all = append(all, e)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LastAccess.After(all[j].LastAccess.Time)
	})

	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, e := range all {
		if _, dup := seen[e.Path]; dup {
			continue
		}
		seen[e.Path] = struct{}{}
		out = append(out, e)
	}
	return out
}

// EncodeRecord serializes a record, optionally pretty-printed with the
// given indent width. Nil scopes encode as empty containers.
func EncodeRecord(rec *Record, pretty bool, indentSize int) ([]byte, error) {
	out := *rec
	if out.Global == nil {
		out.Global = []Entry{}
	}
	if out.Projects == nil {
		out.Projects = map[string][]Entry{}
	}
	if pretty {
		if indentSize <= 0 {
			indentSize = 2
		}
		return json.MarshalIndent(&out, "", strings.Repeat(" ", indentSize))
	}
	return json.Marshal(&out)
}
