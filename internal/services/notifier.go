package services

import (
	"context"
	"log"
	"time"

	"carwash-app/wash-service/internal/models"
)

// Notifier раз в сутки предупреждает клиентов об окнах, истекающих через
// 3 дня. Продлением занимается движок автопродления, не уведомления.
type Notifier struct {
	subscriptions *SubscriptionService
	events        EventPublisher
	now           func() time.Time
}

func NewNotifier(subscriptions *SubscriptionService, events EventPublisher) *Notifier {
	return &Notifier{subscriptions: subscriptions, events: events, now: time.Now}
}

// Start запускает фоновую проверку: сразу при старте и далее каждые сутки.
func (n *Notifier) Start(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	go func() {
		n.runChecks(ctx)

		for {
			select {
			case <-ticker.C:
				log.Println("[NOTIFIER] Running window expiry checks...")
				n.runChecks(ctx)
			case <-ctx.Done():
				ticker.Stop()
				log.Println("[NOTIFIER] Shutdown")
				return
			}
		}
	}()
}

func (n *Notifier) runChecks(ctx context.Context) {
	now := n.now().UTC()
	target := models.DayOf(now).AddDate(0, 0, 3)

	customers, err := n.subscriptions.FindExpiringBetween(ctx, target, target.Add(24*time.Hour))
	if err != nil {
		log.Printf("[NOTIFIER] FindExpiringBetween error: %v", err)
		return
	}

	for i := range customers {
		customer := &customers[i]
		for j := range customer.Vehicles {
			vehicle := &customer.Vehicles[j]
			if vehicle.PackageEndDate == nil || !models.DayOf(*vehicle.PackageEndDate).Equal(target) {
				continue
			}
			n.notifyExpiring(ctx, customer, vehicle.PackageName, *vehicle.PackageEndDate)
		}
		if len(customer.Vehicles) == 0 && customer.PackageEndDate != nil && models.DayOf(*customer.PackageEndDate).Equal(target) {
			n.notifyExpiring(ctx, customer, customer.PackageName, *customer.PackageEndDate)
		}
	}

	n.checkLapsed(ctx, now)
}

// checkLapsed находит уже истёкшие окна с выключенным автопродлением: движок
// их не тронет, клиенту нужно сказать, что подписка закончилась.
func (n *Notifier) checkLapsed(ctx context.Context, now time.Time) {
	withVehicles, err := n.subscriptions.customers.FindWithExpiredVehicleWindows(ctx, now)
	if err != nil {
		log.Printf("[NOTIFIER] expired vehicle scan error: %v", err)
		return
	}
	for i := range withVehicles {
		customer := &withVehicles[i]
		for j := range customer.Vehicles {
			vehicle := &customer.Vehicles[j]
			if vehicle.PackageEndDate == nil || vehicle.PackageEndDate.After(now) {
				continue
			}
			subject := &models.Subject{Customer: customer, Vehicle: vehicle}
			if subject.AutoRenewEnabled() {
				continue
			}
			n.notifyExpired(ctx, customer, vehicle.PackageName, *vehicle.PackageEndDate)
		}
	}

	legacy, err := n.subscriptions.customers.FindLegacyExpired(ctx, now)
	if err != nil {
		log.Printf("[NOTIFIER] expired legacy scan error: %v", err)
		return
	}
	for i := range legacy {
		customer := &legacy[i]
		subject := &models.Subject{Customer: customer}
		if subject.AutoRenewEnabled() || customer.PackageEndDate == nil {
			continue
		}
		n.notifyExpired(ctx, customer, customer.PackageName, *customer.PackageEndDate)
	}
}

func (n *Notifier) notifyExpiring(ctx context.Context, customer *models.Customer, packageName string, end time.Time) {
	if n.events != nil {
		extra := map[string]string{
			"package_name": packageName,
			"end_date":     end.Format("2006-01-02"),
		}
		if err := n.events.PublishWashEvent(ctx, customer.ID.Hex(), "window_expiring", extra); err != nil {
			log.Printf("[NOTIFIER] Failed to publish expiring for customer %s: %v", customer.ID.Hex(), err)
			return
		}
	}
	log.Printf("[NOTIFIER] Notified expiring window for customer %s (%s, ends %s)",
		customer.ID.Hex(), packageName, end.Format("2006-01-02"))
}

func (n *Notifier) notifyExpired(ctx context.Context, customer *models.Customer, packageName string, end time.Time) {
	if n.events != nil {
		extra := map[string]string{
			"package_name": packageName,
			"end_date":     end.Format("2006-01-02"),
		}
		if err := n.events.PublishWashEvent(ctx, customer.ID.Hex(), "window_expired", extra); err != nil {
			log.Printf("[NOTIFIER] Failed to publish expired for customer %s: %v", customer.ID.Hex(), err)
			return
		}
	}
	log.Printf("[NOTIFIER] Notified lapsed window for customer %s (%s, ended %s)",
		customer.ID.Hex(), packageName, end.Format("2006-01-02"))
}
