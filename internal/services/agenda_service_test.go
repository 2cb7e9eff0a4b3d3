package services

import (
	"context"
	"testing"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func legacySubject(name string, start, end time.Time) *models.Subject {
	c := &models.Customer{
		PackageName:      name,
		PackageStartDate: &start,
		PackageEndDate:   &end,
	}
	return &models.Subject{Customer: c}
}

func TestBuildAgendaDays_BasicMonth(t *testing.T) {
	// Basic schedule1: Пн и Чт; окно 1–30 января 2024, 1 января — понедельник
	subject := legacySubject(models.TierBasic, date(2024, 1, 1), date(2024, 1, 30))

	completed := map[time.Time]models.WashLog{
		date(2024, 1, 4): {WashType: models.WashTypeBoth},
	}
	days := buildAgendaDays(subject, completed, models.WashTypeExterior,
		date(2024, 1, 1), date(2024, 1, 31), date(2024, 1, 10))

	// Пн/Чт в пределах окна: 1, 4, 8, 11, 15, 18, 22, 25, 29 января
	if len(days) != 9 {
		t.Fatalf("agenda days = %d, want 9", len(days))
	}
	if !days[0].Date.Equal(date(2024, 1, 1)) || days[0].Weekday != "Monday" {
		t.Errorf("first day = %+v, want Monday 2024-01-01", days[0])
	}

	byDate := make(map[time.Time]models.DayEntry, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}

	// 4 января завершено, тип из записи журнала
	jan4 := byDate[date(2024, 1, 4)]
	if !jan4.Completed || jan4.Missed || jan4.WashType != models.WashTypeBoth {
		t.Errorf("jan 4 = %+v, want completed with wash type from the log", jan4)
	}
	// 1 и 8 января в прошлом и не закрыты
	if !byDate[date(2024, 1, 1)].Missed || !byDate[date(2024, 1, 8)].Missed {
		t.Error("past schedule days without a wash must be missed")
	}
	// 11 января ещё впереди
	jan11 := byDate[date(2024, 1, 11)]
	if jan11.Missed || jan11.Completed {
		t.Errorf("jan 11 = %+v, future day must be neither missed nor completed", jan11)
	}
	if jan11.WashType != models.WashTypeExterior {
		t.Errorf("jan 11 wash type = %q, want default", jan11.WashType)
	}
}

func TestBuildAgendaDays_ClipsToWindow(t *testing.T) {
	// окно начинается посреди месяца
	subject := legacySubject(models.TierModerate, date(2024, 1, 15), date(2024, 2, 13))

	days := buildAgendaDays(subject, nil, models.WashTypeExterior,
		date(2024, 1, 1), date(2024, 1, 31), date(2024, 1, 20))

	for _, d := range days {
		if d.Date.Before(date(2024, 1, 15)) {
			t.Errorf("day %v is before window start", d.Date)
		}
	}
	// Moderate schedule1 (Пн/Ср/Пт) с 15 по 31 января: 15, 17, 19, 22, 24, 26, 29, 31
	if len(days) != 8 {
		t.Errorf("agenda days = %d, want 8", len(days))
	}
}

func TestBuildAgendaDays_NotStarted(t *testing.T) {
	subject := &models.Subject{Customer: &models.Customer{PackageName: models.TierBasic}}
	days := buildAgendaDays(subject, nil, models.WashTypeExterior,
		date(2024, 1, 1), date(2024, 1, 31), date(2024, 1, 10))
	if len(days) != 0 {
		t.Errorf("agenda days = %d, want 0 for a package that never started", len(days))
	}
}

func TestBuildAgenda_WindowMode(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
	})
	logs := &fakeWashLogStore{}
	logs.logs = append(logs.logs, completedLog(customerID, date(2024, 1, 4), date(2024, 1, 4)))

	svc := NewAgendaService(store, logs, &fakePackageCatalog{})
	svc.now = func() time.Time { return date(2024, 1, 10) }

	days, err := svc.BuildAgenda(context.Background(), customerID, nil, RangeWindow, time.Time{})
	if err != nil {
		t.Fatalf("BuildAgenda: %v", err)
	}
	if len(days) != 9 {
		t.Errorf("agenda days = %d, want 9", len(days))
	}
	completed := 0
	for _, d := range days {
		if d.Completed {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("completed days = %d, want 1", completed)
	}
}

func TestBuildAgenda_EmptyBeforeStart(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{ID: customerID, PackageName: models.TierBasic})
	svc := NewAgendaService(store, &fakeWashLogStore{}, &fakePackageCatalog{})
	svc.now = func() time.Time { return date(2024, 1, 10) }

	days, err := svc.BuildAgenda(context.Background(), customerID, nil, RangeWindow, time.Time{})
	if err != nil {
		t.Fatalf("BuildAgenda: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("agenda days = %d, want empty agenda before package start", len(days))
	}
}
