package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
)

// subscribeViews registers the independent views on the bus. None of them
// knows about the others.
func (a *App) subscribeViews() {
	a.subs = append(a.subs,
		// dashboard
		bus.On(a.bus, func(bus.MedicationsRefreshed) { a.dashboardChanged() }),
		bus.On(a.bus, func(e bus.MedicationArchived) {
			if e.Archived {
				a.queue(toast("Medication archived. Its reminders are paused."))
			} else {
				a.queue(toast("Medication restored to your active list."))
			}
		}),

		// reminder badge
		bus.On(a.bus, func(bus.ReminderCreated) { a.refreshBadge(context.Background()) }),
		bus.On(a.bus, func(bus.ReminderUpdated) { a.refreshBadge(context.Background()) }),
		bus.On(a.bus, func(bus.ReminderDeleted) { a.refreshBadge(context.Background()) }),
		bus.On(a.bus, func(bus.MedicationDeleted) { a.refreshBadge(context.Background()) }),
		bus.On(a.bus, func(bus.MedicationArchived) { a.refreshBadge(context.Background()) }),

		// add-medication trigger
		bus.On(a.bus, func(e bus.OpenAddMedication) {
			a.mu.Lock()
			a.pendingAdd = e.Method
			a.mu.Unlock()
		}),
	)
}

func (a *App) dashboardChanged() {
	a.mu.Lock()
	listing := a.listing
	a.lastListed = nil
	a.mu.Unlock()
	if listing {
		return
	}
	meds, err := a.repo.ActiveMedications(context.Background())
	if err != nil {
		return
	}
	a.queue(dim(fmt.Sprintf("Your list now has %d active medication(s).", len(meds))))
}

// afterCommand flushes notices and opens an add flow requested over the bus.
func (a *App) afterCommand(ctx context.Context) {
	a.flushNotices()

	a.mu.Lock()
	method := a.pendingAdd
	a.pendingAdd = ""
	a.mu.Unlock()
	if method == "" {
		return
	}
	if err := a.protected(a.openAdd(method))(ctx, nil); err != nil {
		a.report(ctx, err)
	}
	a.flushNotices()
}
