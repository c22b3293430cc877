package date

import (
	"testing"
	"time"
)

func TestNewNormalizes(t *testing.T) {
	// Day overflow rolls into the next month.
	d := New(2025, time.January, 32)
	if got := d.String(); got != "2025-02-01" {
		t.Errorf("New(2025, January, 32) = %v want 2025-02-01", got)
	}
}

func TestAdd(t *testing.T) {
	d := New(2025, time.February, 28)
	if got := d.Add(1); got != New(2025, time.March, 1) {
		t.Errorf("Add(1) = %v want 2025-03-01", got)
	}
	if got := d.Add(-28); got != New(2025, time.January, 31) {
		t.Errorf("Add(-28) = %v want 2025-01-31", got)
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2025-07-01", want: New(2025, time.July, 1)},
		{in: "2025-7-1", want: New(2025, time.July, 1)},
		{in: "not-a-date", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := Parse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if err == nil && got != tc.want {
			t.Errorf("Parse(%q) = %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestMinMax(t *testing.T) {
	a, b := New(2025, time.March, 1), New(2025, time.March, 15)
	if Min(a, b) != a || Min(b, a) != a {
		t.Errorf("Min(%v, %v) != %v", a, b, a)
	}
	if Max(a, b) != b || Max(b, a) != b {
		t.Errorf("Max(%v, %v) != %v", a, b, b)
	}
}

func TestRangeDays(t *testing.T) {
	r := NewRange(New(2025, time.January, 30), New(2025, time.February, 2))
	var got []Date
	for d := range r.Days() {
		got = append(got, d)
	}
	want := []Date{
		New(2025, time.January, 30),
		New(2025, time.January, 31),
		New(2025, time.February, 1),
		New(2025, time.February, 2),
	}
	if len(got) != len(want) {
		t.Fatalf("Days() yielded %d dates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Days()[%d] = %v want %v", i, got[i], want[i])
		}
	}
}

func TestRangeSwaps(t *testing.T) {
	from, to := New(2025, time.May, 10), New(2025, time.May, 1)
	r := NewRange(from, to)
	if r.From != to || r.To != from {
		t.Errorf("NewRange did not swap reversed bounds: %+v", r)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := New(2025, time.August, 31)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON(%s) error = %v", b, err)
	}
	if back != d {
		t.Errorf("round trip = %v want %v", back, d)
	}
}
