package models

import "time"

type ScheduleVariant string

const (
	Schedule1 ScheduleVariant = "schedule1"
	Schedule2 ScheduleVariant = "schedule2"
)

// WashPlan — результат расчёта расписания: дни недели (1=Пн .. 7=Вс)
// и квота моек на период пакета.
type WashPlan struct {
	WashingDays     []int
	WashesPerPeriod int
}

const defaultQuota = 8

// PlanFor возвращает план моек для пары тариф+вариант расписания.
// Таблица фиксированная и не настраивается в рантайме:
//
//	Basic      schedule1: Пн,Чт   schedule2: Вт,Сб   — 8 моек
//	Moderate   schedule1: Пн,Ср,Пт schedule2: Вт,Чт,Сб — 12 моек
//	Classic    schedule1: Пн,Ср,Пт schedule2: Вт,Чт,Сб — 12 моек
//	Hatch Pack schedule1: Пн,Ср,Пт schedule2: Вт,Чт,Сб — 12 моек
//
// Неизвестный тариф даёт пустой набор дней и квоту 8 — так вёл себя
// исходный бэкенд, ошибкой это не считается.
func PlanFor(tier string, variant ScheduleVariant) WashPlan {
	switch tier {
	case TierBasic:
		if variant == Schedule2 {
			return WashPlan{WashingDays: []int{2, 6}, WashesPerPeriod: 8}
		}
		return WashPlan{WashingDays: []int{1, 4}, WashesPerPeriod: 8}
	case TierModerate, TierClassic, TierHatchPack:
		if variant == Schedule2 {
			return WashPlan{WashingDays: []int{2, 4, 6}, WashesPerPeriod: 12}
		}
		return WashPlan{WashingDays: []int{1, 3, 5}, WashesPerPeriod: 12}
	default:
		return WashPlan{WashingDays: []int{}, WashesPerPeriod: defaultQuota}
	}
}

// ScheduleWeekday приводит time.Weekday (Вс=0) к схеме расписания (Пн=1..Вс=7).
func ScheduleWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ContainsDay проверяет, входит ли день недели даты в план.
func (p WashPlan) ContainsDay(t time.Time) bool {
	day := ScheduleWeekday(t)
	for _, d := range p.WashingDays {
		if d == day {
			return true
		}
	}
	return false
}
