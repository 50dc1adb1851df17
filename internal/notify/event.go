// Package notify carries detected transitions from the check routines to
// delivery sinks without letting delivery failures touch the check loop.
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vigilbot/vigil/internal/watch"
)

// Type discriminates notification events.
type Type string

// Event types emitted by the change detectors.
const (
	TypeFeedItem      Type = "FEED_ITEM"
	TypeRepoRelease   Type = "REPO_RELEASE"
	TypeRepoMilestone Type = "REPO_MILESTONE"
	TypePriceTarget   Type = "PRICE_TARGET"
	TypePriceDrop     Type = "PRICE_DROP"
	TypePriceChange   Type = "PRICE_CHANGE"
	TypeLotteryWinner Type = "LOTTERY_WINNER"
)

// Event is one notification-worthy transition. It carries only what a
// formatting layer needs to render a message; rendering itself lives in the
// sinks.
type Event struct {
	ID         uuid.UUID
	TS         time.Time
	Type       Type
	EntityKind watch.Kind
	EntityID   string

	// Title/Body/URL cover the feed and release shapes.
	Title string
	Body  string
	URL   string

	// Milestone fields.
	Threshold int
	StarCount int

	// Price fields.
	Price       float64
	LastPrice   float64
	DropPercent float64

	// Lottery fields.
	Username     string
	SubscriberID int64
	Prize        string
}

// NewEvent stamps identity and time onto an event skeleton.
func NewEvent(t Type, kind watch.Kind, entityID string, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		TS:         now.UTC(),
		Type:       t,
		EntityKind: kind,
		EntityID:   entityID,
	}
}

// Validate performs coarse checks before an event enters the hub.
func (e Event) Validate() error {
	if e.EntityID == "" {
		return errors.New("entity id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Type {
	case TypeFeedItem, TypeRepoRelease:
		if e.Title == "" && e.URL == "" {
			return fmt.Errorf("%s requires a title or url", e.Type)
		}
	case TypeRepoMilestone:
		if e.Threshold <= 0 {
			return errors.New("milestone requires a threshold")
		}
	case TypePriceTarget, TypePriceDrop, TypePriceChange:
		if e.Price <= 0 {
			return errors.New("price event requires a price")
		}
	case TypeLotteryWinner:
		if e.Username == "" {
			return errors.New("winner event requires a username")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
