// Package terms holds the add-medication flow behind terms acceptance.
// An intent made before acceptance is persisted and replayed exactly once
// through the bus after the user accepts.
package terms

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/session"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

type Store interface {
	Flag(ctx context.Context, f session.Flag) (bool, error)
	SetFlag(ctx context.Context, f session.Flag, on bool) error
	SetPendingAction(ctx context.Context, a models.PendingAction) error
	TakePendingAction(ctx context.Context) (*models.PendingAction, error)
}

type Gate struct {
	store Store
	pub   bus.Publisher
	log   logging.Logger
}

func New(store Store, pub bus.Publisher, log logging.Logger) *Gate {
	return &Gate{store: store, pub: pub, log: log}
}

func (g *Gate) Accepted(ctx context.Context) (bool, error) {
	ok, err := g.store.Flag(ctx, session.FlagTermsAccepted)
	if err != nil {
		return false, fmt.Errorf("read terms flag: %w", err)
	}
	return ok, nil
}

// Require lets an add-medication intent through when terms are accepted.
// Otherwise the intent is saved and ErrTermsNotAccepted is returned.
func (g *Gate) Require(ctx context.Context, method string) error {
	switch method {
	case models.MethodSearch, models.MethodScan:
	default:
		return fmt.Errorf("%w: unknown add method %q", common.ErrValidation, method)
	}

	ok, err := g.Accepted(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	a := models.PendingAction{Kind: models.PendingActionOpenAdd, Method: method}
	if err := g.store.SetPendingAction(ctx, a); err != nil {
		return fmt.Errorf("save pending action: %w", err)
	}
	g.log.Info(ctx, "add medication deferred until terms are accepted", "method", method)
	return common.ErrTermsNotAccepted
}

// Accept records acceptance and replays the pending intent, if any. The
// replayed action is returned; nil means nothing was pending.
func (g *Gate) Accept(ctx context.Context) (*models.PendingAction, error) {
	if err := g.store.SetFlag(ctx, session.FlagTermsAccepted, true); err != nil {
		return nil, fmt.Errorf("save terms flag: %w", err)
	}

	a, err := g.store.TakePendingAction(ctx)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Kind != models.PendingActionOpenAdd {
		return nil, nil
	}

	n := g.pub.Publish(bus.OpenAddMedication{Method: a.Method})
	g.log.Debug(ctx, "replayed pending action", "method", a.Method, "subscribers", n)
	return a, nil
}
