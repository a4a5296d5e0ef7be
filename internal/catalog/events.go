package catalog

import (
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/bbluechip/catalogadmin/pkg/metrics"
)

// TopicStocked carries a StockedEvent after a bulk stock update.
const TopicStocked = "catalog:stocked"

type StockedEvent struct {
	IDs   []int64
	Count int64
	At    time.Time
}

// SubscribeMetrics counts bulk actions and stocked rows.
func SubscribeMetrics(bus EventBus.Bus) error {
	return bus.Subscribe(TopicStocked, func(evt StockedEvent) {
		metrics.AddCounter(metrics.CatalogBulkActions, 1)
		metrics.AddCounter(metrics.CatalogStockedRows, evt.Count)
		zap.L().Info("products marked in stock",
			zap.Int("selected", len(evt.IDs)),
			zap.Int64("matched", evt.Count))
	})
}
