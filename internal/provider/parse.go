package provider

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brianly1003/cdev/internal/adapters/jsonl"
	"github.com/brianly1003/cdev/internal/pathutil"
)

// DefaultByteBudget is the default stopping-condition byte budget for a
// single session-file parse (spec §4.1).
const DefaultByteBudget = 256 * 1024

const (
	maxTitleLen   = 200
	maxSummaryLen = 240
)

var (
	sessionIDPaths = []string{
		"sessionId", "session_id",
		"message.sessionId", "message.session_id",
		"data.sessionId", "data.session_id",
	}
	cwdPaths = []string{
		"cwd", "context.cwd", "payload.cwd", "data.cwd", "message.cwd",
	}
	titlePaths   = []string{"title", "sessionTitle"}
	summaryPaths = []string{"summary", "sessionSummary"}
	createdPaths = []string{"timestamp", "created_at", "createdAt"}

	leadingCodeFenceRe = regexp.MustCompile("^```[a-zA-Z0-9_-]*\\n?")
)

// ScanJSONL implements the shared §4.1 parse contract: read JSONL lines
// until the byte budget is exhausted, the complete-meta predicate is
// satisfied, or EOF; harvest sessionId/cwd/title/summary/createdAt fields
// using the field-probing precedence common to every provider.
//
// isValidSessionID filters candidate session ids; a candidate that fails
// validation is skipped in favor of the next one in the precedence list.
func ScanJSONL(data []byte, isValidSessionID func(string) bool) Meta {
	return scanJSONL(data, DefaultByteBudget, isValidSessionID)
}

func scanJSONL(data []byte, budget int, isValidSessionID func(string) bool) Meta {
	var meta Meta
	var createdAt time.Time

	r := jsonl.NewReader(bytes.NewReader(data), 0)
	consumed := 0

	for {
		if budget > 0 && consumed >= budget {
			break
		}

		line, err := r.Next()
		consumed += line.BytesRead
		if err != nil {
			break
		}
		if line.TooLong || len(bytes.TrimSpace(line.Data)) == 0 {
			meta.MessageCount++
			continue
		}

		var rec map[string]interface{}
		if jsonErr := json.Unmarshal(line.Data, &rec); jsonErr != nil {
			meta.MessageCount++
			continue
		}
		meta.MessageCount++

		harvestFields(&meta, &createdAt, rec, isValidSessionID)

		if isComplete(meta, createdAt) {
			break
		}
	}

	meta.CreatedAt = createdAt
	return meta
}

// harvestFields applies the §4.1 field-probing precedence to a single
// decoded JSON record, filling only fields not yet set in meta.
func harvestFields(meta *Meta, createdAt *time.Time, rec map[string]interface{}, isValidSessionID func(string) bool) {
	if meta.SessionID == "" {
		if id, ok := firstValidString(rec, sessionIDPaths, isValidSessionID); ok {
			meta.SessionID = id
		}
	}

	if meta.Cwd == "" {
		if cwd, ok := firstValidString(rec, cwdPaths, pathutil.LooksLikePath); ok {
			meta.Cwd = cwd
		}
	}

	if meta.Title == "" {
		if title, ok := firstString(rec, titlePaths); ok {
			meta.Title = truncate(title, maxTitleLen)
		} else if title, ok := titleFromUserMessage(rec); ok {
			meta.Title = truncate(title, maxTitleLen)
		}
	}

	if meta.Summary == "" {
		if summary, ok := firstString(rec, summaryPaths); ok {
			meta.Summary = truncate(strings.TrimSpace(summary), maxSummaryLen)
		}
	}

	for _, p := range createdPaths {
		if raw, ok := lookupPathAny(rec, p); ok {
			if t, ok := parseTimestampValue(raw); ok {
				if createdAt.IsZero() || t.Before(*createdAt) {
					*createdAt = t
				}
			}
		}
	}
}

// ScanJSONObject applies the same field-harvesting rules as ScanJSONL to a
// single decoded JSON object, for providers (opencode) whose session
// metadata lives in one pretty-printed JSON file rather than a JSONL
// stream.
func ScanJSONObject(data []byte, isValidSessionID func(string) bool) (Meta, error) {
	var rec map[string]interface{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Meta{}, err
	}
	var meta Meta
	var createdAt time.Time
	meta.MessageCount = 1
	harvestFields(&meta, &createdAt, rec, isValidSessionID)
	meta.CreatedAt = createdAt
	return meta, nil
}

func isComplete(m Meta, createdAt time.Time) bool {
	return m.SessionID != "" && m.Cwd != "" && m.Title != "" && m.Summary != "" && !createdAt.IsZero()
}

func firstValidString(rec map[string]interface{}, paths []string, accept func(string) bool) (string, bool) {
	for _, p := range paths {
		v, ok := lookupPath(rec, p)
		if !ok || v == "" {
			continue
		}
		if accept == nil || accept(v) {
			return v, true
		}
	}
	return "", false
}

func firstString(rec map[string]interface{}, paths []string) (string, bool) {
	return firstValidString(rec, paths, nil)
}

// titleFromUserMessage implements "else, if the line is a user message
// (role === user and a string content), the first user message text ...".
func titleFromUserMessage(rec map[string]interface{}) (string, bool) {
	role, _ := lookupPath(rec, "role")
	if role == "" {
		role, _ = lookupPath(rec, "message.role")
	}
	if role != "user" {
		return "", false
	}

	content, ok := lookupPath(rec, "content")
	if !ok {
		content, ok = lookupPath(rec, "message.content")
	}
	if !ok || content == "" {
		return "", false
	}
	if pathutil.IsSystemContextMessage(content) {
		return "", false
	}

	stripped := leadingCodeFenceRe.ReplaceAllString(strings.TrimSpace(content), "")
	stripped = strings.ReplaceAll(stripped, "\\n", " ")
	stripped = strings.ReplaceAll(stripped, "\\t", " ")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return "", false
	}
	return stripped, true
}

// lookupPath walks a dot-separated path through nested map[string]interface{}
// values, returning a string leaf if the terminal value is a string.
func lookupPath(rec map[string]interface{}, path string) (string, bool) {
	v, ok := lookupPathAny(rec, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// lookupPathAny is like lookupPath but returns the raw leaf value,
// preserving its JSON type (string, float64, bool, ...).
func lookupPathAny(rec map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = rec
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// parseTimestampValue accepts either a JSON number (epoch seconds or
// milliseconds, distinguished by magnitude) or a date string.
func parseTimestampValue(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case float64:
		return epochToTime(int64(v)), true
	case string:
		return parseTimestamp(v)
	default:
		return time.Time{}, false
	}
}

func epochToTime(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// parseTimestamp accepts a numeric epoch (seconds or milliseconds,
// distinguished by magnitude) or an RFC3339/ISO-ish date string.
func parseTimestamp(v string) (time.Time, bool) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > 1e9 {
			return epochToTime(n), true
		}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
