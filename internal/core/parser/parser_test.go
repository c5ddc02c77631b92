package parser

import (
	"testing"
	"time"
)

func TestParseAttendanceLogValidLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		identity string
		want     time.Time
	}{
		{
			name:     "dash separated timestamp",
			input:    "A1001\t2024-03-05 09:15:30",
			identity: "A1001",
			want:     time.Date(2024, 3, 5, 9, 15, 30, 0, time.UTC),
		},
		{
			name:     "slash separated timestamp",
			input:    "A1001\t2024/03/05 09:15:30",
			identity: "A1001",
			want:     time.Date(2024, 3, 5, 9, 15, 30, 0, time.UTC),
		},
		{
			name:     "whitespace fallback tokenizing",
			input:    "B2002 2024-03-05 18:00:00",
			identity: "B2002",
			want:     time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "whitespace fallback with slash timestamp",
			input:    "B2002  2024/03/05  18:00:00",
			identity: "B2002",
			want:     time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := ParseAttendanceLog(tt.input)
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if records[0].Identity != tt.identity {
				t.Errorf("identity = %q, want %q", records[0].Identity, tt.identity)
			}
			if !records[0].Timestamp.Equal(tt.want) {
				t.Errorf("timestamp = %v, want %v", records[0].Timestamp, tt.want)
			}
		})
	}
}

func TestParseAttendanceLogWhitespaceFallbackNeedsBothTokens(t *testing.T) {
	// Whitespace tokenizing splits the timestamp in two; the date part alone
	// does not match either accepted pattern, so identity+date+time works but
	// identity+date-only does not.
	records := ParseAttendanceLog("C3003 2024-03-05")
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestParseAttendanceLogDropsMalformedLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unrecognized timestamp format", "A1001\t05-03-2024"},
		{"single digit fields", "A1001\t2024-3-5 9:15:30"},
		{"mixed separators", "A1001\t2024-03/05 09:15:30"},
		{"timestamp missing time", "A1001\t2024-03-05"},
		{"identity only", "A1001"},
		{"empty identity", "\t2024-03-05 09:15:30"},
		{"garbage", "not a punch line at all\t???"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if records := ParseAttendanceLog(tt.input); len(records) != 0 {
				t.Errorf("got %d records, want 0", len(records))
			}
		})
	}
}

func TestParseAttendanceLogOptionalFields(t *testing.T) {
	records := ParseAttendanceLog("A1001\t2024-03-05 09:15:30\t0\t1\t0\t255")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	for name, field := range map[string]*string{
		"status": rec.Status, "verifyMethod": rec.VerifyMethod, "workCode": rec.WorkCode, "reserved": rec.Reserved,
	} {
		if field == nil {
			t.Errorf("%s is nil, want value", name)
		}
	}
	if rec.Status != nil && *rec.Status != "0" {
		t.Errorf("status = %q, want %q", *rec.Status, "0")
	}
	if rec.Reserved != nil && *rec.Reserved != "255" {
		t.Errorf("reserved = %q, want %q", *rec.Reserved, "255")
	}

	// Absent trailing tokens stay nil, not empty strings.
	records = ParseAttendanceLog("A1001\t2024-03-05 09:15:30\t0")
	rec = records[0]
	if rec.Status == nil || *rec.Status != "0" {
		t.Error("status should carry the third token")
	}
	if rec.VerifyMethod != nil || rec.WorkCode != nil || rec.Reserved != nil {
		t.Error("absent optional tokens should be nil")
	}
}

func TestParseAttendanceLogWhitespaceFallbackOptionalFields(t *testing.T) {
	// After the date and time fields are rejoined into one timestamp, the
	// remaining fields keep their positions.
	records := ParseAttendanceLog("B2002 2024-03-05 18:00:00 0 1")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if !rec.Timestamp.Equal(time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", rec.Timestamp)
	}
	if rec.Status == nil || *rec.Status != "0" {
		t.Error("status should carry the field after the timestamp")
	}
	if rec.VerifyMethod == nil || *rec.VerifyMethod != "1" {
		t.Error("verifyMethod should carry the next field")
	}
	if rec.WorkCode != nil || rec.Reserved != nil {
		t.Error("absent optional fields should be nil")
	}
}

func TestParseAttendanceLogLineSplitting(t *testing.T) {
	input := "A1\t2024-03-05 08:00:00\r\n\r\nB2\t2024-03-05 09:00:00\rC3\t2024-03-05 10:00:00\n\n"
	records := ParseAttendanceLog(input)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Identity != "A1" || records[1].Identity != "B2" || records[2].Identity != "C3" {
		t.Errorf("identities = %q %q %q", records[0].Identity, records[1].Identity, records[2].Identity)
	}
}

func TestParseAttendanceLogRetainsRawLine(t *testing.T) {
	records := ParseAttendanceLog("  A1001\t2024-03-05 09:15:30\t0  \n")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].RawLine != "A1001\t2024-03-05 09:15:30\t0" {
		t.Errorf("rawLine = %q", records[0].RawLine)
	}
}

func TestParseFallbackLogNeverDropsLines(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	input := "X9\tgarbage-date\nno tabs at all\n\t2024-03-05 09:00:00\nY8\t2024/03/06"
	records := ParseFallbackLog(input, now)
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	// Unparsable timestamp falls back to the ingestion instant.
	if records[0].Identity != "X9" || !records[0].Timestamp.Equal(now) {
		t.Errorf("record 0 = %q @ %v", records[0].Identity, records[0].Timestamp)
	}

	// No tab at all: whole line is the identity.
	if records[1].Identity != "no tabs at all" || !records[1].Timestamp.Equal(now) {
		t.Errorf("record 1 = %q @ %v", records[1].Identity, records[1].Timestamp)
	}

	// Empty identity token gets the sentinel.
	if records[2].Identity != UnknownIdentity {
		t.Errorf("record 2 identity = %q, want %q", records[2].Identity, UnknownIdentity)
	}
	if !records[2].Timestamp.Equal(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("record 2 timestamp = %v", records[2].Timestamp)
	}

	// Slash separated bare date is normalized and parsed.
	if !records[3].Timestamp.Equal(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("record 3 timestamp = %v", records[3].Timestamp)
	}

	// Optional fields are always "no value" on the fallback path.
	if records[0].Status != nil || records[0].VerifyMethod != nil {
		t.Error("fallback records should not carry optional fields")
	}
}

func TestParseFallbackLogBlankInput(t *testing.T) {
	if records := ParseFallbackLog("\n\r\n   \n", time.Now()); len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}
