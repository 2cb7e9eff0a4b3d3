package models

import "time"

// WindowDays — фиксированная длина окна подписки в днях. Окно не привязано
// к календарному месяцу: конец = старт + 29 дней, границы включительно.
const WindowDays = 29

// WindowChange — новое состояние окна подписки плюс запись истории,
// дописываемая тем же атомарным апдейтом.
type WindowChange struct {
	StartDate time.Time
	EndDate   time.Time
	Active    bool
	AutoRenew *bool // nil — поле не трогаем
	// WashingDays != nil — заодно зафиксировать расписание (делается при старте).
	WashingDays   []int
	WashFrequency int
	History       PackageHistoryEntry
}
