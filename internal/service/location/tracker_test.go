package location

import (
	"errors"
	"math"
	"testing"
	"time"

	"autosendpic/internal/model"

	"github.com/benbjohnson/clock"
)

func TestTracker_Update(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	tracker := NewTracker(mock)

	if tracker.HasFix() || tracker.Last() != (model.Location{}) {
		t.Fatal("New tracker should have no fix")
	}

	fix := model.Location{Latitude: 35.68, Longitude: 139.76, Accuracy: 5, Provider: "gps"}
	if err := tracker.Update(fix); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got := tracker.Last()
	if got.Latitude != 35.68 || got.Provider != "gps" {
		t.Errorf("Unexpected fix %+v", got)
	}
	if !got.Time.Equal(mock.Now()) {
		t.Errorf("Fix without time should be stamped with now, got %v", got.Time)
	}

	stamped := fix
	stamped.Time = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_ = tracker.Update(stamped)
	if !tracker.Last().Time.Equal(stamped.Time) {
		t.Errorf("Fix time should be kept, got %v", tracker.Last().Time)
	}
}

func TestTracker_RejectsInvalidFix(t *testing.T) {
	tracker := NewTracker(nil)

	invalid := []model.Location{
		{Latitude: 91},
		{Longitude: -181},
		{Accuracy: -1},
		{Speed: -0.5},
		{Altitude: math.NaN()},
		{Latitude: math.Inf(1)},
	}
	for _, loc := range invalid {
		if err := tracker.Update(loc); !errors.Is(err, ErrInvalidFix) {
			t.Errorf("Expected ErrInvalidFix for %+v, got %v", loc, err)
		}
	}
	if tracker.HasFix() {
		t.Error("Invalid fixes must not be stored")
	}
}
