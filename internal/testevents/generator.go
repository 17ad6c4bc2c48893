package testevents

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/mlunde/adventpace/pkg/logger"
)

// Athlete id and object id bases. Generated ids stay well clear of
// real Strava id ranges so a misdirected run cannot collide.
const (
	athleteIDBase   = 90_000_000
	objectIDBase    = 900_000_000
	subscriptionID  = 424242
	aspectDivisor   = 10
	updateThreshold = 7 // 3 in 10 events are updates
)

func randomInt64(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// generateEvents creates the configured number of webhook events
// spread across a fixed set of athlete ids. A slice of events reuses
// object ids so the run exercises the create/update merge path, not
// just inserts.
func generateEvents(ctx context.Context, config *Config, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "generating webhook events",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("numAthletes", config.NumAthletes))

	events := make([]Event, config.NumEvents)
	now := time.Now().Unix()

	for i := range events {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		athlete := athleteIDBase + randomInt64(int64(config.NumAthletes))
		aspect := "create"
		objectID := objectIDBase + int64(i)
		if randomInt64(aspectDivisor) >= updateThreshold && i > 0 {
			// Reuse an earlier object id as an update.
			aspect = "update"
			objectID = events[randomInt64(int64(i))].ObjectID
		}

		events[i] = Event{
			ObjectType:     "activity",
			AspectType:     aspect,
			ObjectID:       objectID,
			OwnerID:        athlete,
			SubscriptionID: subscriptionID,
			EventTime:      now,
		}
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))
	return events, nil
}
