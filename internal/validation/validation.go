// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"time"
	"unicode"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// IsValidContact проверяет контакт клиента. Контакт хранится в свободной форме
// (телефон, почта, пометки), запрещены только управляющие символы. Пустой контакт допустим.
func IsValidContact(contact string) bool {
	for _, ch := range contact {
		if unicode.IsControl(ch) {
			return false
		}
	}
	return true
}

// ParseDate разбирает календарную дату в формате YYYY-MM-DD.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeTime приводит время записи к виду HH:MM. Секунды, если переданы, отбрасываются.
func NormalizeTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{model.TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.TimeLayout), true
		}
	}
	return "", false
}
