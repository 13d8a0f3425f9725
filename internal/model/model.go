// Package model содержит доменные сущности сервиса учёта записей и кассы.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout — формат календарной даты во внешних интерфейсах и SQLite.
const DateLayout = "2006-01-02"

// TimeLayout — формат времени записи (часы и минуты).
const TimeLayout = "15:04"

// Partition описывает изолированный раздел данных одного арендатора.
type Partition struct {
	ID        int64
	Key       string
	Label     string
	CreatedAt time.Time
}

// Client представляет клиента парикмахерской.
type Client struct {
	ID      int64
	Name    string
	Contact string
}

// Service представляет услугу из прайс-листа. Цена хранится в копейках.
type Service struct {
	ID         int64
	Name       string
	PriceCents int64
}

// AppointmentStatus описывает состояние записи.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// Terminal сообщает, что из состояния больше нет переходов.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment описывает запись клиента на услугу.
type Appointment struct {
	ID        int64
	ClientID  int64
	ServiceID int64
	Date      time.Time
	Time      string
	Status    AppointmentStatus
}

// PendingAppointment — ожидающая запись вместе с данными клиента и услуги на момент чтения.
// Имена пустые, если клиент или услуга уже удалены.
type PendingAppointment struct {
	Appointment
	ClientName     string
	ClientContact  string
	ServiceName    string
	ServicePrice   int64
	CatalogMissing bool
}

// EntryKind описывает направление движения денег.
type EntryKind string

const (
	EntryKindInflow  EntryKind = "INFLOW"
	EntryKindOutflow EntryKind = "OUTFLOW"
)

// Valid проверяет, что вид операции известен.
func (k EntryKind) Valid() bool {
	return k == EntryKindInflow || k == EntryKindOutflow
}

// LedgerEntry описывает одну операцию по кассе. Сумма всегда неотрицательна,
// знак определяется видом операции.
type LedgerEntry struct {
	ID            int64
	Description   string
	AmountCents   int64
	Kind          EntryKind
	Date          time.Time
	AppointmentID *int64
}

// Balance содержит итоги по кассе в копейках.
type Balance struct {
	InflowCents  int64
	OutflowCents int64
	NetCents     int64
}

// DailyCount — число записей на одну дату.
type DailyCount struct {
	Date  time.Time
	Count int64
}

// Dashboard — агрегаты для главной страницы, пересчитываемые при каждом запросе.
type Dashboard struct {
	ClientCount       int64
	Balance           Balance
	PendingToday      int64
	Today             time.Time
	DailyAppointments []DailyCount
	RecentEntries     []LedgerEntry
}

// CompletionDescription формирует описание поступления за выполненную запись.
func CompletionDescription(clientName, serviceName string, priceCents int64) string {
	return fmt.Sprintf("Appointment: %s - %s (%s)", clientName, serviceName, FormatCents(priceCents))
}

// FormatCents форматирует сумму в копейках как десятичную строку с двумя знаками.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseCents разбирает десятичную строку суммы в копейки. Более двух знаков после запятой
// считается ошибкой, а не округляется.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", ErrValidation, s)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: amount %q has more than two decimal places", ErrValidation, s)
	}
	if cents.Abs().GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: amount %q is out of range", ErrValidation, s)
	}
	return cents.IntPart(), nil
}

// DateOnly отбрасывает время суток, оставляя календарную дату в UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
