// Package parser turns the raw text payloads pushed by biometric terminals
// into normalized punch records.
package parser

import (
	"regexp"
	"strings"
	"time"

	"attendance.service/internal/core/model"
)

// UnknownIdentity is assigned by the fallback parser when a line carries no
// identity token at all.
const UnknownIdentity = "UNKNOWN"

// Terminals emit timestamps in exactly two shapes. Go's time layouts accept
// one-digit months and days, so the shape is checked with a regexp first.
var (
	timestampShape = regexp.MustCompile(`^\d{4}([-/])\d{2}([-/])\d{2} \d{2}:\d{2}:\d{2}$`)
	dateShape      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseAttendanceLog parses a strict ATTLOG payload. Each line is tokenized
// by tab, falling back to whitespace when tabs yield fewer than two tokens.
// Lines without an identity and a well-formed timestamp are dropped.
func ParseAttendanceLog(text string) []model.PunchRecord {
	var records []model.PunchRecord

	for _, line := range splitLines(text) {
		tokens := strings.Split(line, "\t")
		if len(tokens) < 2 {
			tokens = fieldsWithTimestamp(line)
		}
		if len(tokens) < 2 {
			continue
		}

		identity := strings.TrimSpace(tokens[0])
		if identity == "" {
			continue
		}

		ts, ok := parseTimestamp(strings.TrimSpace(tokens[1]))
		if !ok {
			continue
		}

		rec := model.PunchRecord{
			Identity:  identity,
			Timestamp: ts,
			RawLine:   line,
		}
		optional := []**string{&rec.Status, &rec.VerifyMethod, &rec.WorkCode, &rec.Reserved}
		for i, field := range optional {
			if len(tokens) > i+2 {
				value := strings.TrimSpace(tokens[i+2])
				*field = &value
			}
		}

		records = append(records, rec)
	}

	return records
}

// ParseFallbackLog parses payloads for any non-ATTLOG table. It never drops a
// non-blank line: a missing identity becomes UnknownIdentity and an unparsable
// timestamp becomes the ingestion instant.
func ParseFallbackLog(text string, now time.Time) []model.PunchRecord {
	var records []model.PunchRecord

	for _, line := range splitLines(text) {
		tokens := strings.Split(line, "\t")

		identity := UnknownIdentity
		if len(tokens) > 0 && strings.TrimSpace(tokens[0]) != "" {
			identity = strings.TrimSpace(tokens[0])
		}

		ts := now.UTC()
		if len(tokens) > 1 {
			if parsed, ok := parseLooseTimestamp(strings.TrimSpace(tokens[1])); ok {
				ts = parsed
			}
		}

		records = append(records, model.PunchRecord{
			Identity:  identity,
			Timestamp: ts,
			RawLine:   line,
		})
	}

	return records
}

// fieldsWithTimestamp tokenizes a tab-less line by whitespace runs. The
// accepted timestamp formats contain a space, so whitespace tokenizing splits
// them in two; rejoin the date and time fields into one timestamp candidate.
func fieldsWithTimestamp(line string) []string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return fields
	}

	tokens := make([]string, 0, len(fields)-1)
	tokens = append(tokens, fields[0], fields[1]+" "+fields[2])
	return append(tokens, fields[3:]...)
}

// splitLines splits on any line-ending style and discards blank lines.
// Spaces are trimmed but tabs are kept: a leading tab is an empty first
// field, which the fallback parser maps to the unknown-identity sentinel.
func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.Trim(l, " ")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// parseTimestamp accepts only the two literal terminal formats and interprets
// the wall-clock value as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	m := timestampShape.FindStringSubmatch(s)
	if m == nil || m[1] != m[2] {
		return time.Time{}, false
	}

	layout := "2006-01-02 15:04:05"
	if m[1] == "/" {
		layout = "2006/01/02 15:04:05"
	}

	ts, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// parseLooseTimestamp is the fallback parser's best-effort date handling:
// slash separators are normalized to dashes, then a full timestamp and a
// bare date are tried in turn.
func parseLooseTimestamp(s string) (time.Time, bool) {
	s = strings.ReplaceAll(s, "/", "-")

	if timestampShape.MatchString(s) {
		if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
			return ts, true
		}
	}
	if dateShape.MatchString(s) {
		if ts, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
