package app

import (
	"context"
	"errors"

	"polymarket-scraper/internal/fetcher"
	"polymarket-scraper/internal/service"
)

// SimulateNotify pushes a canned snapshot through the notification sink so
// the Telegram channel can be checked without hitting the Gamma API.
func (a *App) SimulateNotify(ctx context.Context) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	sinks := []service.Sink{service.NotifySink(notifier, a.Config.Alerting.TopEvents)}
	svc := service.New(staticEventSource{}, a.newBuilder(), sinks, nil, service.Options{}, a.Logger)

	snap, err := svc.RunCycle(ctx)
	if err != nil {
		return err
	}
	return svc.Publish(ctx, snap)
}

type staticEventSource struct{}

func (staticEventSource) FetchEvents(context.Context) []fetcher.Record {
	return []fetcher.Record{
		{
			"id":    "simulated-1",
			"title": "Simulated event: will the notifier deliver?",
			"slug":  "simulated-event",
			"tags":  []any{map[string]any{"id": "sim", "label": "Tech", "slug": "tech"}},
			"markets": []any{map[string]any{
				"id":            "simulated-market-1",
				"question":      "Will the notifier deliver?",
				"outcomes":      `["Yes","No"]`,
				"outcomePrices": `["0.97","0.03"]`,
				"volume":        "125000.50",
				"volume24hr":    "4200",
				"liquidity":     "9800",
			}},
		},
	}
}

var _ fetcher.EventSource = staticEventSource{}
