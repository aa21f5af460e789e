package dateutil

import (
	"testing"
	"time"
)

func TestMaskDDMMYY(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"0", "0"},
		{"01", "01"},
		{"011", "01/1"},
		{"0111", "01/11"},
		{"01112", "01/11/2"},
		{"011125", "01/11/25"},
		{"01/11/25", "01/11/25"},
		{"01-11-25", "01/11/25"},
		{"abc01x11y25z9", "01/11/25"},
		{"0111259999", "01/11/25"},
	}
	for _, tc := range cases {
		if got := MaskDDMMYY(tc.in); got != tc.want {
			t.Errorf("MaskDDMMYY(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDDMMYYRejectsBadInput(t *testing.T) {
	bad := []string{"", "1/1/25", "01/11/2025", "32/01/25", "01/13/25", "00/11/25", "31/02/25", "29/02/25", "aa/bb/cc"}
	for _, s := range bad {
		if _, err := ParseDDMMYY(s); err == nil {
			t.Errorf("ParseDDMMYY(%q) accepted bad input", s)
		}
	}
}

func TestParseDDMMYYMidnightIST(t *testing.T) {
	got, err := ParseDDMMYY("01/11/25")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, time.November, 1, 0, 0, 0, 0, IST)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestToStoredIsPreviousDayEveningUTC(t *testing.T) {
	got, err := ToStored("01/11/25")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, time.October, 31, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStoredRoundTrip(t *testing.T) {
	for _, s := range []string{"01/11/25", "29/02/24", "31/12/25", "15/08/26"} {
		stored, err := ToStored(s)
		if err != nil {
			t.Fatalf("ToStored(%q): %v", s, err)
		}
		if got := FromStored(stored); got != s {
			t.Errorf("round trip of %q came back as %q", s, got)
		}
	}
}

func TestCalendarToStored(t *testing.T) {
	got, err := CalendarToStored("2025-11-01")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, time.October, 31, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := CalendarToStored("01/11/25"); err == nil {
		t.Error("accepted a dd/mm/yy string as a calendar date")
	}
}
