// Package quota реализует дневную квоту бесплатного тарифа.
//
// Окно квоты скользящее и сбрасывается лениво: при каждом обращении, если с
// начала окна прошло не меньше Window, счётчик обнуляется, а началом окна
// становится текущий момент. Сброс выполняется до проверки лимита.
package quota

import (
	"errors"
	"time"

	"github.com/magabrotheeeer/audioia/internal/models"
)

// ErrQuotaExceeded лимит загрузок в текущем окне исчерпан.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Decision результат проверки квоты.
type Decision int

const (
	// Denied загрузка запрещена.
	Denied Decision = iota
	// Allowed загрузка разрешена.
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Policy параметры квоты.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Check решает, можно ли аккаунту загрузить запись в момент now.
//
// Для premium ничего не читает и не меняет. Для free при истёкшем окне
// сбрасывает счётчик и сдвигает начало окна на now, изменяя acc, даже если
// итоговое решение Denied.
func Check(acc *models.Account, now time.Time, p Policy) Decision {
	if acc.IsPremium() {
		return Allowed
	}
	if now.Sub(acc.QuotaWindowStart) >= p.Window {
		acc.UploadsInWindow = 0
		acc.QuotaWindowStart = now
	}
	if acc.UploadsInWindow >= p.Limit {
		return Denied
	}
	return Allowed
}

// Consume засчитывает одну загрузку. Для premium ничего не делает.
func Consume(acc *models.Account) {
	if acc.IsPremium() {
		return
	}
	acc.UploadsInWindow++
}

// Remaining сколько загрузок осталось в окне. Для premium возвращает -1.
func Remaining(acc *models.Account, p Policy) int {
	if acc.IsPremium() {
		return -1
	}
	return max(p.Limit-acc.UploadsInWindow, 0)
}
