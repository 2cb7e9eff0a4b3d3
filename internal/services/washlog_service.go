package services

import (
	"context"
	"log"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WashLogStore interface {
	Insert(ctx context.Context, entry *models.WashLog) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.WashLog, error)
	FindCompletedOnDay(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, day time.Time) (*models.WashLog, error)
	CountCompletedInRange(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, from, to time.Time) (int, error)
	FindCompletedInRange(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, from, to time.Time) ([]models.WashLog, error)
	MarkCancelled(ctx context.Context, id primitive.ObjectID, cancelledAt time.Time) (bool, error)
	FindLatestCompleted(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (*models.WashLog, error)
	FindByCustomer(ctx context.Context, customerID primitive.ObjectID, from, to *time.Time) ([]models.WashLog, error)
}

type PackageCatalog interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Package, error)
}

// WindowRenewer — кусок SubscriptionService, нужный для ленивого продления.
type WindowRenewer interface {
	Renew(ctx context.Context, customerID primitive.ObjectID, subject *models.Subject) (bool, error)
}

// SMSSender шлёт клиенту SMS о завершённой мойке. Доставка best-effort.
type SMSSender interface {
	WashCompleted(mobile string, washType models.WashType) error
}

// EventPublisher публикует доменные события для внешних потребителей.
type EventPublisher interface {
	PublishWashEvent(ctx context.Context, customerID, eventType string, extra map[string]string) error
}

// WashLogService — журнал моек и счётчики поверх него.
type WashLogService struct {
	logs      WashLogStore
	customers CustomerStore
	packages  PackageCatalog
	windows   WindowRenewer
	sms       SMSSender
	events    EventPublisher
	now       func() time.Time
}

func NewWashLogService(logs WashLogStore, customers CustomerStore, packages PackageCatalog, windows WindowRenewer, sms SMSSender, events EventPublisher) *WashLogService {
	return &WashLogService{
		logs:      logs,
		customers: customers,
		packages:  packages,
		windows:   windows,
		sms:       sms,
		events:    events,
		now:       time.Now,
	}
}

func (s *WashLogService) resolve(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (*models.Customer, *models.Subject, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	subject, err := customer.SubjectFor(vehicleID)
	if err != nil {
		return nil, nil, err
	}
	return customer, subject, nil
}

// maybeRenew лениво продлевает истёкшее окно носителя и перечитывает
// клиента, чтобы дальше работать со свежим окном.
func (s *WashLogService) maybeRenew(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, subject *models.Subject) (*models.Subject, error) {
	end := subject.EndDate()
	if end == nil || end.After(s.now().UTC()) || !subject.AutoRenewEnabled() {
		return subject, nil
	}
	if _, err := s.windows.Renew(ctx, customerID, subject); err != nil {
		return nil, err
	}
	_, fresh, err := s.resolve(ctx, customerID, vehicleID)
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// monthRange — границы текущего календарного месяца.
func monthRange(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

func computeCounts(total, completed int) models.WashCounts {
	pending := total - completed
	if pending < 0 {
		pending = 0
	}
	return models.WashCounts{Completed: completed, Pending: pending, Total: total}
}

func (s *WashLogService) countsFor(ctx context.Context, customerID primitive.ObjectID, subject *models.Subject) (models.WashCounts, error) {
	// Квота на период — табличная по тарифу; completed же считается за
	// текущий календарный месяц, а не за 29-дневное окно. Так считал
	// исходный бэкенд, поведение сохранено.
	total := models.PlanFor(subject.PackageName(), subject.Schedule().ScheduleType).WashesPerPeriod
	from, to := monthRange(s.now())
	completed, err := s.logs.CountCompletedInRange(ctx, customerID, subject.VehicleID(), from, to)
	if err != nil {
		return models.WashCounts{}, err
	}
	return computeCounts(total, completed), nil
}

// GetCountsAndMaybeRenew возвращает счётчики моек носителя. Имя честное:
// если окно истекло и автопродление не выключено, вызов сперва продлит
// окно, то есть это чтение с побочной записью.
func (s *WashLogService) GetCountsAndMaybeRenew(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (models.WashCounts, error) {
	_, subject, err := s.resolve(ctx, customerID, vehicleID)
	if err != nil {
		return models.WashCounts{}, err
	}
	subject, err = s.maybeRenew(ctx, customerID, vehicleID, subject)
	if err != nil {
		return models.WashCounts{}, err
	}
	return s.countsFor(ctx, customerID, subject)
}

type CompleteWashInput struct {
	CustomerID    primitive.ObjectID
	VehicleID     *primitive.ObjectID
	WasherID      primitive.ObjectID
	ScheduledDate time.Time
	WashType      models.WashType // пусто — взять по пакету
	Notes         string
}

// CompleteScheduledWash закрывает день расписания мойкой. Предусловия
// проверяются по порядку, первое нарушенное решает: квота, попадание в
// окно, отсутствие дубля за этот день.
func (s *WashLogService) CompleteScheduledWash(ctx context.Context, in CompleteWashInput) (*models.WashLog, error) {
	customer, subject, err := s.resolve(ctx, in.CustomerID, in.VehicleID)
	if err != nil {
		return nil, err
	}
	subject, err = s.maybeRenew(ctx, in.CustomerID, in.VehicleID, subject)
	if err != nil {
		return nil, err
	}

	counts, err := s.countsFor(ctx, in.CustomerID, subject)
	if err != nil {
		return nil, err
	}
	if counts.Pending <= 0 {
		return nil, models.ErrQuotaExceeded
	}

	day := models.DayOf(in.ScheduledDate)
	if !subject.WithinWindow(day) {
		return nil, models.ErrOutOfWindow
	}

	if _, err := s.logs.FindCompletedOnDay(ctx, in.CustomerID, subject.VehicleID(), day); err == nil {
		return nil, models.ErrAlreadyCompleted
	} else if err != models.ErrNotFound {
		return nil, err
	}

	washType := in.WashType
	if washType == "" {
		washType = models.WashTypeExterior
		if pkgID := subject.PackageID(); pkgID != nil {
			if pkg, err := s.packages.GetByID(ctx, *pkgID); err == nil {
				washType = models.DefaultWashType(pkg)
			}
		}
	}

	now := s.now().UTC()
	entry := &models.WashLog{
		CustomerID:    in.CustomerID,
		VehicleID:     subject.VehicleID(),
		WasherID:      in.WasherID,
		PackageID:     subject.PackageID(),
		WashType:      washType,
		ScheduledDate: &day,
		WashDate:      now,
		CompletedAt:   &now,
		Status:        models.WashCompleted,
		Early:         day.After(models.DayOf(now)),
		Apartment:     customer.Apartment,
		DoorNo:        customer.DoorNo,
		Notes:         in.Notes,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.customers.SetLastWashDate(ctx, in.CustomerID, subject.VehicleID(), &now); err != nil {
		log.Printf("[WASH] last_wash_date update failed: customer=%s: %v", in.CustomerID.Hex(), err)
	}

	// Уведомления best-effort: сбой не откатывает мойку и не отдаётся
	// наружу, источник истины — журнал.
	go s.notifyCompleted(customer, entry)

	return entry, nil
}

func (s *WashLogService) notifyCompleted(customer *models.Customer, entry *models.WashLog) {
	if s.sms != nil {
		if err := s.sms.WashCompleted(customer.MobileNo, entry.WashType); err != nil {
			log.Printf("[WASH] sms failed: customer=%s: %v", customer.ID.Hex(), err)
		}
	}
	if s.events != nil {
		extra := map[string]string{"wash_log_id": entry.ID.Hex(), "wash_type": string(entry.WashType)}
		if err := s.events.PublishWashEvent(context.Background(), customer.ID.Hex(), "wash_completed", extra); err != nil {
			log.Printf("[WASH] event publish failed: customer=%s: %v", customer.ID.Hex(), err)
		}
	}
}

// CancelWash переводит завершённую мойку в cancelled (запись остаётся в
// журнале) и пересчитывает last_wash_date по следующей свежей завершённой
// записи. Давность мойки не ограничивается. Возвращает обновлённые счётчики.
func (s *WashLogService) CancelWash(ctx context.Context, logID primitive.ObjectID) (models.WashCounts, error) {
	entry, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return models.WashCounts{}, err
	}
	if entry.Status != models.WashCompleted {
		return models.WashCounts{}, models.ErrInvalidState
	}

	ok, err := s.logs.MarkCancelled(ctx, logID, s.now().UTC())
	if err != nil {
		return models.WashCounts{}, err
	}
	if !ok {
		return models.WashCounts{}, models.ErrInvalidState
	}

	// last_wash_date — производное поле, после отмены его надо перечитать
	// из журнала: берём следующую по свежести завершённую запись.
	latest, err := s.logs.FindLatestCompleted(ctx, entry.CustomerID, entry.VehicleID)
	switch err {
	case nil:
		wd := latest.WashDate
		err = s.customers.SetLastWashDate(ctx, entry.CustomerID, entry.VehicleID, &wd)
	case models.ErrNotFound:
		err = s.customers.SetLastWashDate(ctx, entry.CustomerID, entry.VehicleID, nil)
	}
	if err != nil {
		return models.WashCounts{}, err
	}

	return s.GetCountsAndMaybeRenew(ctx, entry.CustomerID, entry.VehicleID)
}

// GetWashHistory — история моек клиента, опционально за месяц (month 1..12).
func (s *WashLogService) GetWashHistory(ctx context.Context, customerID primitive.ObjectID, month, year int) ([]models.WashLog, error) {
	var from, to *time.Time
	if month >= 1 && month <= 12 && year > 0 {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		from, to = &start, &end
	}
	return s.logs.FindByCustomer(ctx, customerID, from, to)
}
