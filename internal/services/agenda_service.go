package services

import (
	"context"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RangeMode string

const (
	RangeMonth  RangeMode = "month"
	RangeWindow RangeMode = "window"
)

// AgendaService строит повестку моек: день за днём по расписанию носителя,
// с пометками completed/missed.
type AgendaService struct {
	customers CustomerStore
	logs      WashLogStore
	packages  PackageCatalog
	now       func() time.Time
}

func NewAgendaService(customers CustomerStore, logs WashLogStore, packages PackageCatalog) *AgendaService {
	return &AgendaService{customers: customers, logs: logs, packages: packages, now: time.Now}
}

// BuildAgenda возвращает повестку за календарный месяц (monthAnchor — любой
// день месяца) либо за всё окно пакета (mode == RangeWindow). Дни вне окна
// отбрасываются. Для ещё не стартовавшего пакета повестка пуста.
func (s *AgendaService) BuildAgenda(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, mode RangeMode, monthAnchor time.Time) ([]models.DayEntry, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	subject, err := customer.SubjectFor(vehicleID)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	if mode == RangeWindow {
		start, end := subject.StartDate(), subject.EndDate()
		if start == nil || end == nil {
			return []models.DayEntry{}, nil
		}
		from, to = models.DayOf(*start), models.DayOf(*end)
	} else {
		anchor := monthAnchor.UTC()
		from = time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	}

	completed, err := s.logs.FindCompletedInRange(ctx, customerID, subject.VehicleID(), from, to)
	if err != nil {
		return nil, err
	}
	completedByDay := make(map[time.Time]models.WashLog, len(completed))
	for _, entry := range completed {
		if entry.ScheduledDate != nil {
			completedByDay[models.DayOf(*entry.ScheduledDate)] = entry
		}
	}

	defaultType := models.WashTypeExterior
	if pkgID := subject.PackageID(); pkgID != nil {
		if pkg, err := s.packages.GetByID(ctx, *pkgID); err == nil {
			defaultType = models.DefaultWashType(pkg)
		}
	}

	today := models.DayOf(s.now())
	return buildAgendaDays(subject, completedByDay, defaultType, from, to, today), nil
}

// buildAgendaDays — чистое ядро повестки: по дню на каждую дату диапазона,
// чей день недели есть в расписании и которая попадает в окно подписки.
// missed — день расписания в прошлом без завершённой мойки; washType дня
// берётся из фактической записи журнала, если она есть.
func buildAgendaDays(subject *models.Subject, completedByDay map[time.Time]models.WashLog, defaultType models.WashType, from, to, today time.Time) []models.DayEntry {
	plan := subject.Plan()
	entries := []models.DayEntry{}

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !plan.ContainsDay(d) || !subject.WithinWindow(d) {
			continue
		}

		entry := models.DayEntry{
			Date:     d,
			Weekday:  d.Weekday().String(),
			WashType: defaultType,
		}
		if logEntry, ok := completedByDay[d]; ok {
			entry.Completed = true
			entry.WashType = logEntry.WashType
		} else if d.Before(today) {
			entry.Missed = true
		}
		entries = append(entries, entry)
	}
	return entries
}
