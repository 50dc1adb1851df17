package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

func priceWatch() watch.PriceWatch {
	return watch.PriceWatch{ID: "p1", URL: "https://shop.example.com/widget", Label: "widget"}
}

func TestDiffPrice_TargetReachedWinsRegardlessOfFlags(t *testing.T) {
	t.Parallel()

	w := priceWatch()
	w.TargetPrice = 50
	w.HasTargetPrice = true
	w.NotifyOnDrop = false
	w.NotifyOnAnyChange = false

	updated, events := DiffPrice(w, 45, time.Unix(1000, 0))

	require.Len(t, events, 1)
	require.Equal(t, notify.TypePriceTarget, events[0].Type)
	require.Equal(t, 45.0, events[0].Price)
	require.Equal(t, 45.0, updated.CurrentPrice)
}

func TestDiffPrice_DropBelowThresholdNotifies(t *testing.T) {
	t.Parallel()

	w := priceWatch()
	w.NotifyOnDrop = true
	w.DropThresholdPercent = 10
	w.CurrentPrice = 100
	w.HasLastPrice = true

	updated, events := DiffPrice(w, 85, time.Unix(1000, 0))

	require.Len(t, events, 1)
	require.Equal(t, notify.TypePriceDrop, events[0].Type)
	require.InDelta(t, 15.0, events[0].DropPercent, 0.001)
	require.Equal(t, 100.0, updated.LastPrice)
	require.Equal(t, 85.0, updated.CurrentPrice)
}

func TestDiffPrice_SmallDropBelowThresholdIsSilent(t *testing.T) {
	t.Parallel()

	w := priceWatch()
	w.NotifyOnDrop = true
	w.DropThresholdPercent = 10
	w.CurrentPrice = 100
	w.HasLastPrice = true

	updated, events := DiffPrice(w, 95, time.Unix(1000, 0))

	require.Empty(t, events)
	require.Equal(t, 95.0, updated.CurrentPrice, "state advances even when no notification fires")
}

func TestDiffPrice_AnyChangeNotifiesBothDirections(t *testing.T) {
	t.Parallel()

	w := priceWatch()
	w.NotifyOnAnyChange = true
	w.CurrentPrice = 100
	w.HasLastPrice = true

	_, events := DiffPrice(w, 110, time.Unix(1000, 0))
	require.Len(t, events, 1)
	require.Equal(t, notify.TypePriceChange, events[0].Type)

	w.CurrentPrice = 110
	_, events = DiffPrice(w, 90, time.Unix(2000, 0))
	require.Len(t, events, 1)
}

func TestDiffPrice_FirstObservationWithoutTargetIsSilent(t *testing.T) {
	t.Parallel()

	w := priceWatch()
	w.NotifyOnDrop = true
	w.NotifyOnAnyChange = true
	w.DropThresholdPercent = 1

	updated, events := DiffPrice(w, 100, time.Unix(1000, 0))

	require.Empty(t, events, "drop and change rules need a previous price")
	require.True(t, updated.HasLastPrice)
	require.Equal(t, 100.0, updated.CurrentPrice)
}

func TestDiffPrice_UnchangedPriceIsSilent(t *testing.T) {
	t.Parallel()

	w := priceWatch()
	w.NotifyOnAnyChange = true
	w.CurrentPrice = 100
	w.HasLastPrice = true

	_, events := DiffPrice(w, 100, time.Unix(1000, 0))
	require.Empty(t, events)
}
