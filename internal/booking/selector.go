package booking

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ridgelineauto/scheduling-api/internal/qualification"
)

// Selector assigns a technician for a booking: highest priority first,
// round-robin among technicians sharing that priority. The rotation
// counter lives in redis so assignments stay balanced across replicas.
type Selector struct {
	rdb *redis.Client
}

// NewSelector builds a selector on the shared redis client.
func NewSelector(rdb *redis.Client) *Selector {
	return &Selector{rdb: rdb}
}

// Select picks a technician from qualified, restricted to availableIDs.
// qualified must already be priority-sorted with stable sheet order, which
// is what the qualification source returns. Returns "" when nobody on the
// available list is qualified.
func (s *Selector) Select(ctx context.Context, qualified []qualification.QualifiedTech, availableIDs []string, department string) (string, error) {
	available := make(map[string]struct{}, len(availableIDs))
	for _, id := range availableIDs {
		available[id] = struct{}{}
	}

	var candidates []qualification.QualifiedTech
	for _, tech := range qualified {
		if _, ok := available[tech.TechID]; ok {
			candidates = append(candidates, tech)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	topPriority := candidates[0].Priority
	var peers []qualification.QualifiedTech
	for _, tech := range candidates {
		if tech.Priority == topPriority {
			peers = append(peers, tech)
		}
	}
	if len(peers) == 1 {
		return peers[0].TechID, nil
	}

	key := fmt.Sprintf("booking:rr:%s:%d", department, topPriority)
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		// A broken counter must not block bookings; fall back to the
		// highest-priority technician.
		return peers[0].TechID, nil
	}
	return peers[(n-1)%int64(len(peers))].TechID, nil
}
