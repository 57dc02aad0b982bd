package es

import (
	"fmt"
	"testing"
)

func TestExpectedVersion_Any(t *testing.T) {
	ev := Any()

	if !ev.IsAny() {
		t.Error("Expected IsAny() to be true")
	}
	if ev.IsNoStream() {
		t.Error("Expected IsNoStream() to be false")
	}
	if ev.IsStreamExists() {
		t.Error("Expected IsStreamExists() to be false")
	}
	if ev.IsExact() {
		t.Error("Expected IsExact() to be false")
	}
	if ev.Value() != 0 {
		t.Errorf("Expected Value() to be 0, got %d", ev.Value())
	}
	if ev.String() != "Any" {
		t.Errorf("Expected String() to be 'Any', got '%s'", ev.String())
	}
}

func TestExpectedVersion_NoStream(t *testing.T) {
	ev := NoStream()

	if ev.IsAny() {
		t.Error("Expected IsAny() to be false")
	}
	if !ev.IsNoStream() {
		t.Error("Expected IsNoStream() to be true")
	}
	if ev.IsStreamExists() {
		t.Error("Expected IsStreamExists() to be false")
	}
	if ev.IsExact() {
		t.Error("Expected IsExact() to be false")
	}
	if ev.Value() != 0 {
		t.Errorf("Expected Value() to be 0, got %d", ev.Value())
	}
	if ev.String() != "NoStream" {
		t.Errorf("Expected String() to be 'NoStream', got '%s'", ev.String())
	}
}

func TestExpectedVersion_StreamExists(t *testing.T) {
	ev := StreamExists()

	if ev.IsAny() {
		t.Error("Expected IsAny() to be false")
	}
	if ev.IsNoStream() {
		t.Error("Expected IsNoStream() to be false")
	}
	if !ev.IsStreamExists() {
		t.Error("Expected IsStreamExists() to be true")
	}
	if ev.IsExact() {
		t.Error("Expected IsExact() to be false")
	}
	if ev.Value() != 0 {
		t.Errorf("Expected Value() to be 0, got %d", ev.Value())
	}
	if ev.String() != "StreamExists" {
		t.Errorf("Expected String() to be 'StreamExists', got '%s'", ev.String())
	}
}

func TestExpectedVersion_Exact(t *testing.T) {
	tests := []struct {
		version int64
	}{
		{0},
		{1},
		{42},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("version %d", tt.version), func(t *testing.T) {
			ev := Exact(tt.version)

			if !ev.IsExact() {
				t.Error("Expected IsExact() to be true")
			}
			if ev.IsAny() || ev.IsNoStream() || ev.IsStreamExists() {
				t.Error("Expected no other kind to match")
			}
			if ev.Value() != tt.version {
				t.Errorf("Expected Value() to be %d, got %d", tt.version, ev.Value())
			}
			want := fmt.Sprintf("Exact(%d)", tt.version)
			if ev.String() != want {
				t.Errorf("Expected String() to be %q, got %q", want, ev.String())
			}
		})
	}
}

func TestExpectedVersion_ExactNegativePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected Exact(-1) to panic")
		}
	}()
	Exact(-1)
}
