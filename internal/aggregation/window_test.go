package aggregation

import (
	"errors"
	"testing"
	"time"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*3600)
	}
	return loc
}

func TestComputeWindow(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	// Wednesday 2024-01-10 14:30 local
	ref := time.Date(2024, 1, 10, 14, 30, 0, 0, loc)

	tests := []struct {
		name      string
		kind      WindowKind
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "today",
			kind:      WindowToday,
			wantStart: time.Date(2024, 1, 10, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 1, 10, 23, 59, 59, 0, loc),
		},
		{
			name:      "yesterday",
			kind:      WindowYesterday,
			wantStart: time.Date(2024, 1, 9, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 1, 9, 23, 59, 59, 0, loc),
		},
		{
			name:      "this week runs sunday to saturday",
			kind:      WindowThisWeek,
			wantStart: time.Date(2024, 1, 7, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 1, 13, 23, 59, 59, 0, loc),
		},
		{
			name:      "last week is exactly seven days earlier",
			kind:      WindowLastWeek,
			wantStart: time.Date(2023, 12, 31, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 1, 6, 23, 59, 59, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ComputeWindow(tt.kind, ref, loc, "", "")
			if err != nil {
				t.Fatalf("ComputeWindow() error = %v", err)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", w.End, tt.wantEnd)
			}
		})
	}
}

func TestComputeWindowUsesLocalDay(t *testing.T) {
	loc := saoPaulo(t)
	// 01:00 UTC on the 11th is still the 10th in Sao Paulo
	ref := time.Date(2024, 1, 11, 1, 0, 0, 0, time.UTC)

	w, err := ComputeWindow(WindowToday, ref, loc, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Start.Format(DateLayout); got != "2024-01-10" {
		t.Errorf("local day = %s, want 2024-01-10", got)
	}
}

func TestComputeWindowSundayReference(t *testing.T) {
	loc := time.UTC
	ref := time.Date(2024, 1, 7, 0, 0, 0, 0, loc)

	w, err := ComputeWindow(WindowThisWeek, ref, loc, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if w.Start.Weekday() != time.Sunday || w.End.Weekday() != time.Saturday {
		t.Errorf("week = %v..%v", w.Start.Weekday(), w.End.Weekday())
	}
	if w.Days() != 7 {
		t.Errorf("Days() = %d, want 7", w.Days())
	}
}

func TestComputeWindowCustom(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
		days    int
	}{
		{name: "three days", start: "2024-01-01", end: "2024-01-03", days: 3},
		{name: "single day", start: "2024-02-29", end: "2024-02-29", days: 1},
		{name: "missing end", start: "2024-01-01", wantErr: true},
		{name: "missing start", end: "2024-01-01", wantErr: true},
		{name: "end before start", start: "2024-01-03", end: "2024-01-01", wantErr: true},
		{name: "malformed", start: "01/01/2024", end: "2024-01-03", wantErr: true},
		{name: "impossible date", start: "2024-02-30", end: "2024-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ComputeWindow(WindowCustom, time.Now(), loc, tt.start, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error %v is not ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.Days() != tt.days {
				t.Errorf("Days() = %d, want %d", w.Days(), tt.days)
			}
			if w.End.Hour() != 23 || w.End.Minute() != 59 || w.End.Second() != 59 {
				t.Errorf("End = %v, want 23:59:59", w.End)
			}
		})
	}
}

func TestComputeWindowUnknownKind(t *testing.T) {
	if _, err := ComputeWindow("fortnight", time.Now(), time.UTC, "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestComputeWindowNilLocation(t *testing.T) {
	ref := time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)
	w, err := ComputeWindow(WindowToday, ref, nil, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if w.Start.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", w.Start.Location())
	}
}
