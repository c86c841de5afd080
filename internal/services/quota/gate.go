package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/models"
)

// Store атомарное чтение-изменение-запись состояния квоты одного аккаунта.
type Store interface {
	UpdateQuota(ctx context.Context, uid string, fn func(acc *models.Account) error) (*models.Account, error)
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
}

// Observer получает решения квоты.
type Observer interface {
	ObserveAdmission(allowed bool, tier string)
}

// Reservation слот, занятый допущенной загрузкой.
//
// Слот бесплатного тарифа засчитывается сразу при допуске. Если загрузка не
// завершилась, Release возвращает его обратно, поэтому итоговый счётчик растёт
// только на успешные загрузки.
type Reservation struct {
	AccountUID  string
	Premium     bool
	WindowStart time.Time
	committed   bool
	released    bool
}

// Status состояние квоты для отображения пользователю.
type Status struct {
	Entitlement     models.Entitlement `json:"entitlement"`
	UploadsInWindow int                `json:"uploads_in_window"`
	Limit           int                `json:"limit"`
	Remaining       int                `json:"remaining"`
	WindowResetsAt  *time.Time         `json:"window_resets_at,omitempty"`
}

// Gate контроль допуска загрузок.
type Gate struct {
	store    Store
	policy   Policy
	observer Observer
	log      *slog.Logger
}

// NewGate создаёт Gate. observer может быть nil.
func NewGate(store Store, policy Policy, observer Observer, log *slog.Logger) *Gate {
	return &Gate{store: store, policy: policy, observer: observer, log: log}
}

// Admit проверяет квоту и, если загрузка разрешена, занимает слот.
//
// Проверка, сброс окна и занятие слота выполняются одной операцией хранилища,
// поэтому конкурентные запросы одного аккаунта не превысят лимит. Сброс окна
// сохраняется и при отказе. При отказе возвращается ErrQuotaExceeded.
func (g *Gate) Admit(ctx context.Context, accountUID string, now time.Time) (*Reservation, error) {
	const op = "quota.Gate.Admit"

	var decision Decision
	acc, err := g.store.UpdateQuota(ctx, accountUID, func(acc *models.Account) error {
		decision = Check(acc, now, g.policy)
		if decision == Allowed {
			Consume(acc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if g.observer != nil {
		g.observer.ObserveAdmission(decision == Allowed, string(acc.Entitlement))
	}
	g.log.Debug("quota decision",
		sl.Op(op),
		slog.String("account_uid", accountUID),
		slog.String("decision", decision.String()),
		slog.Int("uploads_in_window", acc.UploadsInWindow),
	)

	if decision == Denied {
		return nil, fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	}
	return &Reservation{
		AccountUID:  accountUID,
		Premium:     acc.IsPremium(),
		WindowStart: acc.QuotaWindowStart,
	}, nil
}

// Commit подтверждает, что загрузка завершилась успешно. Слот остаётся засчитанным.
func (g *Gate) Commit(_ context.Context, r *Reservation) error {
	if r == nil {
		return nil
	}
	if r.released {
		return fmt.Errorf("quota.Gate.Commit: reservation for %s already released", r.AccountUID)
	}
	r.committed = true
	return nil
}

// Release возвращает слот неудавшейся загрузки.
//
// Счётчик уменьшается, только если окно с момента допуска не сбрасывалось.
// Для premium, а также после Commit или повторного Release ничего не делает.
func (g *Gate) Release(ctx context.Context, r *Reservation) error {
	const op = "quota.Gate.Release"
	if r == nil || r.Premium || r.committed || r.released {
		return nil
	}

	_, err := g.store.UpdateQuota(ctx, r.AccountUID, func(acc *models.Account) error {
		if acc.IsPremium() || !acc.QuotaWindowStart.Equal(r.WindowStart) || acc.UploadsInWindow == 0 {
			return nil
		}
		acc.UploadsInWindow--
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.released = true
	return nil
}

// Status возвращает состояние квоты на момент now, ничего не сохраняя.
func (g *Gate) Status(ctx context.Context, accountUID string, now time.Time) (*Status, error) {
	const op = "quota.Gate.Status"

	acc, err := g.store.GetAccount(ctx, accountUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view := *acc
	Check(&view, now, g.policy)
	st := &Status{
		Entitlement:     view.Entitlement,
		UploadsInWindow: view.UploadsInWindow,
		Limit:           g.policy.Limit,
		Remaining:       Remaining(&view, g.policy),
	}
	if !view.IsPremium() {
		resets := view.QuotaWindowStart.Add(g.policy.Window)
		st.WindowResetsAt = &resets
	}
	return st, nil
}
