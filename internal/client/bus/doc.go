// Package bus is the in-process publish/subscribe channel that keeps
// independently mounted views consistent.
//
// Delivery is synchronous and best-effort: Publish calls every handler
// subscribed at the moment of publishing, in no guaranteed order, and drops
// events nobody listens to. A panicking handler is recovered and logged so
// the rest still run. Payloads are discriminators (ids, methods), never
// entities; receivers refetch what they need.
//
// Contracts:
//
//	event                 publishers                         subscribers
//	open_add_medication   any view, terms gate replay        add-medication trigger
//	medication_created    capture pipeline, catalog          repository, dashboard
//	medication_deleted    repository                         repository, dashboard, bottom nav
//	medication_archived   repository                         repository, dashboard
//	reminder_created      reminder editor                    dashboard (active reminder count)
//	reminder_updated      reminder editor                    dashboard
//	reminder_deleted      reminder editor                    dashboard
//	medications_refreshed repository                         interaction aggregator
package bus
