package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// Notification event types.
const (
	EventTradeFilled = "trade_filled"
	EventLowBalance  = "low_balance"
)

// Notifier delivers operator alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SideChannels bundles the best-effort outputs of a committed operation.
// Any member may be nil. Failures are logged and never returned.
type SideChannels struct {
	Bus      domain.SignalBus
	Audit    domain.AuditStore
	Notifier Notifier
}

// emitter writes to SideChannels on behalf of one component.
type emitter struct {
	SideChannels
	component string
	logger    *slog.Logger
}

func newEmitter(sc SideChannels, component string, logger *slog.Logger) emitter {
	return emitter{SideChannels: sc, component: component, logger: logger}
}

func (e emitter) warn(ctx context.Context, msg string, err error) {
	e.logger.WarnContext(ctx, e.component+": "+msg, slog.String("error", err.Error()))
}

// publish sends evt on channel. Trade events are also appended to the
// durable ledger stream.
func (e emitter) publish(ctx context.Context, channel string, evt map[string]any) {
	if e.Bus == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		e.warn(ctx, "marshal event failed", err)
		return
	}
	if err := e.Bus.Publish(ctx, channel, payload); err != nil {
		e.warn(ctx, "publish event failed", err)
	}
	if channel == domain.ChannelTrades {
		if err := e.Bus.StreamAppend(ctx, domain.StreamLedger, payload); err != nil {
			e.warn(ctx, "stream append failed", err)
		}
	}
}

func (e emitter) audit(ctx context.Context, event string, detail map[string]any) {
	if e.Audit == nil {
		return
	}
	if err := e.Audit.Log(ctx, event, detail); err != nil {
		e.warn(ctx, "audit log failed", err)
	}
}

func (e emitter) notify(ctx context.Context, event, title, message string) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Notify(ctx, event, title, message); err != nil {
		e.warn(ctx, "notify failed", err)
	}
}
