package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeWashLogStore struct {
	mu   sync.Mutex
	logs []*models.WashLog
}

func sameVehicle(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeWashLogStore) matches(entry *models.WashLog, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) bool {
	return entry.CustomerID == customerID && sameVehicle(entry.VehicleID, vehicleID)
}

func (f *fakeWashLogStore) Insert(_ context.Context, entry *models.WashLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeWashLogStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.WashLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.logs {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeWashLogStore) FindCompletedOnDay(_ context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, day time.Time) (*models.WashLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.logs {
		if entry.Status != models.WashCompleted || !f.matches(entry, customerID, vehicleID) {
			continue
		}
		if entry.ScheduledDate != nil && models.DayOf(*entry.ScheduledDate).Equal(models.DayOf(day)) {
			return entry, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeWashLogStore) CountCompletedInRange(_ context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, entry := range f.logs {
		if entry.Status != models.WashCompleted || !f.matches(entry, customerID, vehicleID) {
			continue
		}
		if !entry.WashDate.Before(from) && !entry.WashDate.After(to) {
			n++
		}
	}
	return n, nil
}

func (f *fakeWashLogStore) FindCompletedInRange(_ context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, from, to time.Time) ([]models.WashLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WashLog
	for _, entry := range f.logs {
		if entry.Status != models.WashCompleted || !f.matches(entry, customerID, vehicleID) {
			continue
		}
		if entry.ScheduledDate != nil && !entry.ScheduledDate.Before(from) && !entry.ScheduledDate.After(to) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeWashLogStore) MarkCancelled(_ context.Context, id primitive.ObjectID, cancelledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.logs {
		if entry.ID == id && entry.Status == models.WashCompleted {
			entry.Status = models.WashCancelled
			entry.CancelledAt = &cancelledAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWashLogStore) FindLatestCompleted(_ context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (*models.WashLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.WashLog
	for _, entry := range f.logs {
		if entry.Status != models.WashCompleted || !f.matches(entry, customerID, vehicleID) {
			continue
		}
		if latest == nil || entry.WashDate.After(latest.WashDate) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (f *fakeWashLogStore) FindByCustomer(_ context.Context, customerID primitive.ObjectID, from, to *time.Time) ([]models.WashLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WashLog
	for _, entry := range f.logs {
		if entry.CustomerID != customerID {
			continue
		}
		if from != nil && entry.WashDate.Before(*from) {
			continue
		}
		if to != nil && entry.WashDate.After(*to) {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

type fakePackageCatalog struct {
	packages map[primitive.ObjectID]*models.Package
}

func (f *fakePackageCatalog) GetByID(_ context.Context, id primitive.ObjectID) (*models.Package, error) {
	if pkg, ok := f.packages[id]; ok {
		return pkg, nil
	}
	return nil, models.ErrNotFound
}

func completedLog(customerID primitive.ObjectID, scheduled, washed time.Time) *models.WashLog {
	d := scheduled
	w := washed
	return &models.WashLog{
		ID:            primitive.NewObjectID(),
		CustomerID:    customerID,
		ScheduledDate: &d,
		WashDate:      w,
		CompletedAt:   &w,
		Status:        models.WashCompleted,
		WashType:      models.WashTypeExterior,
	}
}

func newWashLogServiceAt(logs WashLogStore, store CustomerStore, packages PackageCatalog, now time.Time) *WashLogService {
	renewer := newSubscriptionServiceAt(store, now)
	svc := NewWashLogService(logs, store, packages, renewer, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGetCounts_Basic(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
	})
	logs := &fakeWashLogStore{}
	logs.logs = append(logs.logs, completedLog(customerID, date(2024, 1, 4), date(2024, 1, 4)))

	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 1, 10))
	counts, err := svc.GetCountsAndMaybeRenew(context.Background(), customerID, nil)
	if err != nil {
		t.Fatalf("GetCountsAndMaybeRenew: %v", err)
	}
	want := models.WashCounts{Completed: 1, Pending: 7, Total: 8}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
}

func TestGetCounts_LazyRenew(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
	})
	logs := &fakeWashLogStore{}

	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 2, 5))
	counts, err := svc.GetCountsAndMaybeRenew(context.Background(), customerID, nil)
	if err != nil {
		t.Fatalf("GetCountsAndMaybeRenew: %v", err)
	}
	// февраль пуст, квота целиком свободна
	want := models.WashCounts{Completed: 0, Pending: 8, Total: 8}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}

	// чтение с истёкшим окном должно было продлить подписку
	c, _ := store.GetByID(context.Background(), customerID)
	if !c.PackageStartDate.Equal(date(2024, 1, 30)) || !c.PackageEndDate.Equal(date(2024, 2, 28)) {
		t.Errorf("window = %v..%v, want 2024-01-30..2024-02-28", c.PackageStartDate, c.PackageEndDate)
	}
}

func TestGetCounts_NoLazyRenewWhenOptedOut(t *testing.T) {
	off := false
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
		AutoRenew:        &off,
	})
	svc := newWashLogServiceAt(&fakeWashLogStore{}, store, &fakePackageCatalog{}, date(2024, 2, 5))

	if _, err := svc.GetCountsAndMaybeRenew(context.Background(), customerID, nil); err != nil {
		t.Fatalf("GetCountsAndMaybeRenew: %v", err)
	}
	c, _ := store.GetByID(context.Background(), customerID)
	if !c.PackageEndDate.Equal(date(2024, 1, 30)) {
		t.Errorf("end = %v, window must not be renewed", c.PackageEndDate)
	}
}

func TestCompleteWash_QuotaExceeded(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
	})
	logs := &fakeWashLogStore{}
	// квота Basic (8 моек) уже выбрана в январе
	for d := 1; d <= 8; d++ {
		logs.logs = append(logs.logs, completedLog(customerID, date(2024, 1, d), date(2024, 1, d)))
	}

	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 1, 20))
	_, err := svc.CompleteScheduledWash(context.Background(), CompleteWashInput{
		CustomerID:    customerID,
		WasherID:      primitive.NewObjectID(),
		ScheduledDate: date(2024, 1, 22),
	})
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if len(logs.logs) != 8 {
		t.Errorf("log entries = %d, rejected wash must not be written", len(logs.logs))
	}
}

func TestCompleteWash_OutOfWindow(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 10)),
		PackageEndDate:   ptrTime(date(2024, 2, 8)),
	})
	svc := newWashLogServiceAt(&fakeWashLogStore{}, store, &fakePackageCatalog{}, date(2024, 1, 20))

	_, err := svc.CompleteScheduledWash(context.Background(), CompleteWashInput{
		CustomerID:    customerID,
		WasherID:      primitive.NewObjectID(),
		ScheduledDate: date(2024, 1, 5), // до старта окна
	})
	if !errors.Is(err, models.ErrOutOfWindow) {
		t.Errorf("err = %v, want ErrOutOfWindow", err)
	}
}

func TestCompleteWash_AlreadyCompleted(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
	})
	logs := &fakeWashLogStore{}
	logs.logs = append(logs.logs, completedLog(customerID, date(2024, 1, 4), date(2024, 1, 4)))

	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 1, 4))
	_, err := svc.CompleteScheduledWash(context.Background(), CompleteWashInput{
		CustomerID:    customerID,
		WasherID:      primitive.NewObjectID(),
		ScheduledDate: date(2024, 1, 4),
	})
	if !errors.Is(err, models.ErrAlreadyCompleted) {
		t.Errorf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestCompleteWash_DefaultsAndEarlyFlag(t *testing.T) {
	pkgID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageID:        &pkgID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
	})
	packages := &fakePackageCatalog{packages: map[primitive.ObjectID]*models.Package{
		pkgID: {ID: pkgID, Name: models.TierBasic, HasInterior: true},
	}}
	logs := &fakeWashLogStore{}

	svc := newWashLogServiceAt(logs, store, packages, date(2024, 1, 10))
	entry, err := svc.CompleteScheduledWash(context.Background(), CompleteWashInput{
		CustomerID:    customerID,
		WasherID:      primitive.NewObjectID(),
		ScheduledDate: date(2024, 1, 11), // закрываем завтрашний день
	})
	if err != nil {
		t.Fatalf("CompleteScheduledWash: %v", err)
	}
	if !entry.Early {
		t.Error("wash ahead of schedule must be flagged early")
	}
	// тип мойки по пакету: салон включён
	if entry.WashType != models.WashTypeBoth {
		t.Errorf("wash type = %q, want %q", entry.WashType, models.WashTypeBoth)
	}

	c, _ := store.GetByID(context.Background(), customerID)
	if c.WashingSchedule.LastWashDate == nil {
		t.Error("last_wash_date must be set after completion")
	}
}

func TestCancelWash(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
		WashingSchedule:  models.WashingSchedule{LastWashDate: ptrTime(date(2024, 1, 8))},
	})
	logs := &fakeWashLogStore{}
	first := completedLog(customerID, date(2024, 1, 4), date(2024, 1, 4))
	second := completedLog(customerID, date(2024, 1, 8), date(2024, 1, 8))
	logs.logs = append(logs.logs, first, second)

	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 1, 10))
	counts, err := svc.CancelWash(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("CancelWash: %v", err)
	}
	want := models.WashCounts{Completed: 1, Pending: 7, Total: 8}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
	if second.Status != models.WashCancelled || second.CancelledAt == nil {
		t.Errorf("entry = %+v, want cancelled with timestamp", second)
	}

	// last_wash_date откатился на предыдущую завершённую мойку
	c, _ := store.GetByID(context.Background(), customerID)
	if c.WashingSchedule.LastWashDate == nil || !c.WashingSchedule.LastWashDate.Equal(date(2024, 1, 4)) {
		t.Errorf("last_wash_date = %v, want 2024-01-04", c.WashingSchedule.LastWashDate)
	}

	// повторная отмена той же записи
	if _, err := svc.CancelWash(context.Background(), second.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("second cancel err = %v, want ErrInvalidState", err)
	}
}

func TestCancelWash_LastEntryClearsDate(t *testing.T) {
	customerID := primitive.NewObjectID()
	store := newFakeCustomerStore(&models.Customer{
		ID:               customerID,
		PackageName:      models.TierBasic,
		PackageStartDate: ptrTime(date(2024, 1, 1)),
		PackageEndDate:   ptrTime(date(2024, 1, 30)),
		WashingSchedule:  models.WashingSchedule{LastWashDate: ptrTime(date(2024, 1, 4))},
	})
	logs := &fakeWashLogStore{}
	only := completedLog(customerID, date(2024, 1, 4), date(2024, 1, 4))
	logs.logs = append(logs.logs, only)

	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 1, 10))
	if _, err := svc.CancelWash(context.Background(), only.ID); err != nil {
		t.Fatalf("CancelWash: %v", err)
	}

	c, _ := store.GetByID(context.Background(), customerID)
	if c.WashingSchedule.LastWashDate != nil {
		t.Errorf("last_wash_date = %v, want nil after cancelling the only wash", c.WashingSchedule.LastWashDate)
	}
}

func TestGetWashHistory_MonthFilter(t *testing.T) {
	customerID := primitive.NewObjectID()
	logs := &fakeWashLogStore{}
	logs.logs = append(logs.logs,
		completedLog(customerID, date(2024, 1, 4), date(2024, 1, 4)),
		completedLog(customerID, date(2024, 2, 5), date(2024, 2, 5)),
	)
	store := newFakeCustomerStore(&models.Customer{ID: customerID, PackageName: models.TierBasic})
	svc := newWashLogServiceAt(logs, store, &fakePackageCatalog{}, date(2024, 3, 1))

	history, err := svc.GetWashHistory(context.Background(), customerID, 1, 2024)
	if err != nil {
		t.Fatalf("GetWashHistory: %v", err)
	}
	if len(history) != 1 || !history[0].WashDate.Equal(date(2024, 1, 4)) {
		t.Errorf("history = %+v, want the single January wash", history)
	}

	all, err := svc.GetWashHistory(context.Background(), customerID, 0, 0)
	if err != nil {
		t.Fatalf("GetWashHistory: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("history without filter = %d entries, want 2", len(all))
	}
}
