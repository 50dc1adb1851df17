package detect

import (
	"time"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

// DiffPrice folds a freshly extracted price into the watch state and
// decides whether to notify. The policy rules are evaluated in priority
// order: target price reached wins regardless of the other flags, then a
// qualifying drop, then plain any-change. At most one event fires per tick.
func DiffPrice(w watch.PriceWatch, price float64, now time.Time) (watch.PriceWatch, []notify.Event) {
	last := w.CurrentPrice
	hadLast := w.HasLastPrice

	w.LastPrice = last
	w.CurrentPrice = price
	w.HasLastPrice = true

	var dropPercent float64
	if hadLast && last > 0 && price < last {
		dropPercent = (last - price) / last * 100
	}

	var evtType notify.Type
	switch {
	case w.HasTargetPrice && price <= w.TargetPrice:
		evtType = notify.TypePriceTarget
	case w.NotifyOnDrop && hadLast && price < last && dropPercent >= w.DropThresholdPercent:
		evtType = notify.TypePriceDrop
	case w.NotifyOnAnyChange && hadLast && price != last:
		evtType = notify.TypePriceChange
	default:
		return w, nil
	}

	evt := notify.NewEvent(evtType, watch.KindPrice, w.ID, now)
	evt.Title = w.Label
	evt.URL = w.URL
	evt.Price = price
	evt.LastPrice = last
	evt.DropPercent = dropPercent
	return w, []notify.Event{evt}
}
