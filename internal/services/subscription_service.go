package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerStore — то, что сервису подписок нужно от хранилища клиентов.
type CustomerStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	UpdateWindowCAS(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, expectedEnd *time.Time, w models.WindowChange) (bool, error)
	SetLastWashDate(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, t *time.Time) error
	FindWithExpiredVehicleWindows(ctx context.Context, before time.Time) ([]models.Customer, error)
	FindLegacyExpired(ctx context.Context, before time.Time) ([]models.Customer, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Customer, error)
}

// SubscriptionService ведёт окна подписок: старт пакета, автопродление,
// административные правки. Каждый переход окна — условный апдейт в Mongo,
// поэтому сервис безопасен при конкурентных вызовах (включая ленивое
// продление из счётчика моек).
type SubscriptionService struct {
	customers CustomerStore
	now       func() time.Time
}

func NewSubscriptionService(customers CustomerStore) *SubscriptionService {
	return &SubscriptionService{customers: customers, now: time.Now}
}

// StartPackage активирует пакет носителя: старт — сегодняшний день,
// конец — через 29 дней, автопродление включено. Заодно фиксирует
// washing_days по тарифу и варианту расписания. Повторный старт даёт
// ErrAlreadyStarted.
func (s *SubscriptionService) StartPackage(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (time.Time, time.Time, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	subject, err := customer.SubjectFor(vehicleID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if subject.StartDate() != nil || subject.EndDate() != nil {
		return time.Time{}, time.Time{}, models.ErrAlreadyStarted
	}

	now := s.now().UTC()
	start := models.DayOf(now)
	end := start.AddDate(0, 0, models.WindowDays)
	plan := subject.Plan()
	autoRenew := true

	change := models.WindowChange{
		StartDate:     start,
		EndDate:       end,
		Active:        true,
		AutoRenew:     &autoRenew,
		WashingDays:   plan.WashingDays,
		WashFrequency: plan.WashesPerPeriod,
		History: models.PackageHistoryEntry{
			PackageID:   subject.PackageID(),
			PackageName: subject.PackageName(),
			StartDate:   start,
			EndDate:     end,
			RenewedOn:   now,
		},
	}

	ok, err := s.customers.UpdateWindowCAS(ctx, customerID, subject.VehicleID(), nil, change)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		// Кто-то стартовал пакет между чтением и апдейтом.
		return time.Time{}, time.Time{}, models.ErrAlreadyStarted
	}
	return start, end, nil
}

// Renew продлевает истёкшее окно носителя: новый старт — прежний конец
// (цепочка без разрывов и наложений), новый конец — +29 дней. Возвращает
// false без ошибки, если условный апдейт не прошёл: окно уже продлили
// параллельно, и это штатный исход.
func (s *SubscriptionService) Renew(ctx context.Context, customerID primitive.ObjectID, subject *models.Subject) (bool, error) {
	prevEnd := subject.EndDate()
	if prevEnd == nil {
		return false, models.ErrInvalidState
	}

	now := s.now().UTC()
	newStart := models.DayOf(*prevEnd)
	newEnd := newStart.AddDate(0, 0, models.WindowDays)

	change := models.WindowChange{
		StartDate: newStart,
		EndDate:   newEnd,
		Active:    true,
		History: models.PackageHistoryEntry{
			PackageID:   subject.PackageID(),
			PackageName: subject.PackageName(),
			StartDate:   newStart,
			EndDate:     newEnd,
			AutoRenewed: true,
			RenewedOn:   now,
		},
	}
	return s.customers.UpdateWindowCAS(ctx, customerID, subject.VehicleID(), prevEnd, change)
}

// AdminOverride — прямая правка окна администратором. Диапазон проверяется,
// запись истории помечается updated_by_admin. Несколько попыток CAS на
// случай гонки с автопродлением.
func (s *SubscriptionService) AdminOverride(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, newStart, newEnd time.Time) error {
	newStart = models.DayOf(newStart)
	newEnd = models.DayOf(newEnd)
	if newStart.After(newEnd) {
		return fmt.Errorf("%w: start %s after end %s", models.ErrInvalidRange, newStart.Format("2006-01-02"), newEnd.Format("2006-01-02"))
	}

	for attempt := 0; attempt < 3; attempt++ {
		customer, err := s.customers.GetByID(ctx, customerID)
		if err != nil {
			return err
		}
		subject, err := customer.SubjectFor(vehicleID)
		if err != nil {
			return err
		}

		change := models.WindowChange{
			StartDate: newStart,
			EndDate:   newEnd,
			Active:    true,
			History: models.PackageHistoryEntry{
				PackageID:      subject.PackageID(),
				PackageName:    subject.PackageName(),
				StartDate:      newStart,
				EndDate:        newEnd,
				UpdatedByAdmin: true,
				RenewedOn:      s.now().UTC(),
			},
		}
		ok, err := s.customers.UpdateWindowCAS(ctx, customerID, subject.VehicleID(), subject.EndDate(), change)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return models.ErrInvalidState
}

// RunAutoRenewOnce — один проход движка автопродления: находит все окна с
// end_date <= now (и на машинах, и у легаси-клиентов) и продлевает каждое
// условным апдейтом. Безопасен при параллельном запуске с самим собой и с
// ленивым продлением: проигравший CAS просто не считается.
func (s *SubscriptionService) RunAutoRenewOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()
	renewed := 0

	customers, err := s.customers.FindWithExpiredVehicleWindows(ctx, now)
	if err != nil {
		return 0, err
	}
	for i := range customers {
		customer := &customers[i]
		for j := range customer.Vehicles {
			vehicle := &customer.Vehicles[j]
			if vehicle.PackageEndDate == nil || vehicle.PackageEndDate.After(now) {
				continue
			}
			subject := &models.Subject{Customer: customer, Vehicle: vehicle}
			if !subject.AutoRenewEnabled() {
				continue
			}
			ok, err := s.Renew(ctx, customer.ID, subject)
			if err != nil {
				log.Printf("[RENEWAL] renew failed: customer=%s vehicle=%s: %v", customer.ID.Hex(), vehicle.ID.Hex(), err)
				continue
			}
			if ok {
				renewed++
			}
		}
	}

	legacy, err := s.customers.FindLegacyExpired(ctx, now)
	if err != nil {
		return renewed, err
	}
	for i := range legacy {
		customer := &legacy[i]
		if customer.PackageEndDate == nil || customer.PackageEndDate.After(now) {
			continue
		}
		subject := &models.Subject{Customer: customer}
		if !subject.AutoRenewEnabled() {
			continue
		}
		ok, err := s.Renew(ctx, customer.ID, subject)
		if err != nil {
			log.Printf("[RENEWAL] legacy renew failed: customer=%s: %v", customer.ID.Hex(), err)
			continue
		}
		if ok {
			renewed++
		}
	}

	log.Printf("[RENEWAL] pass complete, renewed=%d", renewed)
	return renewed, nil
}

// FindExpiringBetween отдаёт клиентов с окнами, истекающими в интервале.
func (s *SubscriptionService) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Customer, error) {
	return s.customers.FindExpiringBetween(ctx, from, to)
}
