// Package entitlement guards protected views behind the subscription
// status. The guard fetches status on mount and then on a fixed interval,
// fails open while nothing authoritative is known (not yet loaded, fetch
// errors) and fails closed once the backend says the subscription is
// inactive.
package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/poller"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

const DefaultPollInterval = 60 * time.Second

type StatusSource interface {
	SubscriptionStatus(ctx context.Context) (models.SubscriptionStatus, error)
}

// Identity answers who, if anyone, is signed in.
type Identity interface {
	SignedIn(ctx context.Context) (bool, error)
	Profile(ctx context.Context) (*models.Profile, error)
}

type Outcome int

const (
	// OutcomeRender shows the protected view.
	OutcomeRender Outcome = iota
	// OutcomeUpgrade replaces the view with the blocking upgrade surface.
	OutcomeUpgrade
)

func (o Outcome) String() string {
	if o == OutcomeUpgrade {
		return "upgrade"
	}
	return "render"
}

// Decision is the guard's verdict for one render.
type Decision struct {
	Outcome Outcome
	// Warning is set at most once per mount, when an active subscription has
	// WarnHours or less left.
	Warning string
	Status  *models.SubscriptionStatus
}

type Guard struct {
	src       StatusSource
	id        Identity
	interval  time.Duration
	warnHours float64
	log       logging.Logger

	mu      sync.Mutex
	status  *models.SubscriptionStatus
	lastErr error
	warned  bool
	handle  *poller.Handle
}

func NewGuard(src StatusSource, id Identity, interval time.Duration, warnHours int, log logging.Logger) *Guard {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if warnHours <= 0 {
		warnHours = common.ExpiryWarningHours
	}
	return &Guard{src: src, id: id, interval: interval, warnHours: float64(warnHours), log: log}
}

// Mount starts polling: one fetch right away, then every interval.
// Calling Mount again restarts the poller.
func (g *Guard) Mount(ctx context.Context) {
	g.Unmount()
	g.mu.Lock()
	g.warned = false
	g.mu.Unlock()

	h := poller.Start(ctx, g.interval, func(ctx context.Context) {
		if err := g.Refresh(ctx); err != nil {
			g.log.Warn(ctx, "subscription status fetch failed", "error", err)
		}
	})
	g.mu.Lock()
	g.handle = h
	g.mu.Unlock()
}

// Unmount stops polling and waits for an in-flight fetch.
func (g *Guard) Unmount() {
	g.mu.Lock()
	h := g.handle
	g.handle = nil
	g.mu.Unlock()
	h.Stop()
}

// Refresh fetches the status once. On error the last authoritative status
// is kept.
func (g *Guard) Refresh(ctx context.Context) error {
	st, err := g.src.SubscriptionStatus(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.lastErr = err
		return fmt.Errorf("subscription status: %w", err)
	}
	g.lastErr = nil
	g.status = &st
	return nil
}

// Status returns the last fetched status, or nil.
func (g *Guard) Status() *models.SubscriptionStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == nil {
		return nil
	}
	s := *g.status
	return &s
}

// LastError is the error of the latest fetch, nil after a success.
func (g *Guard) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Unlimited reports whether quotas are lifted: lifetime tier or premium.
func (g *Guard) Unlimited() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status != nil && (g.status.IsLifetime() || g.status.IsPremium)
}

// Decide evaluates the decision table for the current render.
func (g *Guard) Decide(ctx context.Context) Decision {
	signedIn, err := g.id.SignedIn(ctx)
	if err != nil {
		g.log.Warn(ctx, "session lookup failed, rendering unguarded", "error", err)
		return Decision{Outcome: OutcomeRender}
	}
	if !signedIn {
		return Decision{Outcome: OutcomeRender}
	}

	premium := false
	if p, err := g.id.Profile(ctx); err == nil && p != nil {
		premium = p.Premium
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status == nil {
		return Decision{Outcome: OutcomeRender}
	}
	st := *g.status
	if premium || st.IsPremium || st.IsLifetime() {
		return Decision{Outcome: OutcomeRender, Status: &st}
	}
	if !st.Active {
		return Decision{Outcome: OutcomeUpgrade, Status: &st}
	}

	d := Decision{Outcome: OutcomeRender, Status: &st}
	if st.HoursRemaining <= g.warnHours && !g.warned {
		g.warned = true
		d.Warning = expiryWarning(st)
	}
	return d
}

func expiryWarning(st models.SubscriptionStatus) string {
	hours := int(st.HoursRemaining)
	if st.Tier == models.TierTrial {
		return fmt.Sprintf("Your free trial ends in %d hours. Subscribe to keep access.", hours)
	}
	return fmt.Sprintf("Your %s subscription expires in %d hours. Renew to avoid interruption.", st.Tier, hours)
}
