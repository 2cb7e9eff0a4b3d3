package models

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSubjectFor(t *testing.T) {
	v1 := Vehicle{ID: primitive.NewObjectID(), PackageName: TierBasic}
	v2 := Vehicle{ID: primitive.NewObjectID(), PackageName: TierClassic}

	legacy := &Customer{PackageName: TierModerate}
	s, err := legacy.SubjectFor(nil)
	if err != nil || !s.IsLegacy() || s.PackageName() != TierModerate {
		t.Errorf("legacy subject = (%+v, %v), want legacy Moderate", s, err)
	}

	single := &Customer{Vehicles: []Vehicle{v1}}
	s, err = single.SubjectFor(nil)
	if err != nil || s.IsLegacy() || s.VehicleID() == nil || *s.VehicleID() != v1.ID {
		t.Errorf("single-vehicle subject = (%+v, %v), want the only vehicle", s, err)
	}

	multi := &Customer{Vehicles: []Vehicle{v1, v2}}
	// при нескольких машинах vehicleID обязателен
	if _, err := multi.SubjectFor(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("multi without vehicleID err = %v, want ErrValidation", err)
	}
	s, err = multi.SubjectFor(&v2.ID)
	if err != nil || s.PackageName() != TierClassic {
		t.Errorf("subject for v2 = (%+v, %v), want Classic vehicle", s, err)
	}

	unknown := primitive.NewObjectID()
	if _, err := multi.SubjectFor(&unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown vehicle err = %v, want ErrNotFound", err)
	}
}

func TestSubject_WithinWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	s := &Subject{Customer: &Customer{PackageStartDate: &start, PackageEndDate: &end}}

	// границы окна включительно
	if !s.WithinWindow(start) || !s.WithinWindow(end) {
		t.Error("window bounds must be inclusive")
	}
	if s.WithinWindow(start.AddDate(0, 0, -1)) || s.WithinWindow(end.AddDate(0, 0, 1)) {
		t.Error("days outside the window must be rejected")
	}
	// момент внутри дня конца окна тоже попадает
	if !s.WithinWindow(end.Add(10 * time.Hour)) {
		t.Error("any moment of the last window day must be inside")
	}

	if (&Subject{Customer: &Customer{}}).WithinWindow(start) {
		t.Error("subject without a window must reject any day")
	}
}

func TestSubject_AutoRenewEnabled(t *testing.T) {
	off := false
	if !(&Subject{Customer: &Customer{}}).AutoRenewEnabled() {
		t.Error("nil auto_renew must default to enabled")
	}
	if (&Subject{Customer: &Customer{AutoRenew: &off}}).AutoRenewEnabled() {
		t.Error("explicit false must disable auto renew")
	}
}

func TestSubject_PlanOverride(t *testing.T) {
	c := &Customer{
		PackageName:     TierBasic,
		WashingSchedule: WashingSchedule{WashingDays: []int{2, 5}},
	}
	plan := (&Subject{Customer: c}).Plan()
	// явные washing_days важнее табличных
	if len(plan.WashingDays) != 2 || plan.WashingDays[0] != 2 || plan.WashingDays[1] != 5 {
		t.Errorf("washing days = %v, want [2 5]", plan.WashingDays)
	}
	if plan.WashesPerPeriod != 8 {
		t.Errorf("quota = %d, want 8 from the Basic tier", plan.WashesPerPeriod)
	}
}
