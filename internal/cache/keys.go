package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RateLimitKey names the request counter for one user and one window.
func RateLimitKey(userID uuid.UUID, window time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", userID, window.Unix())
}

// OAuthStateKey marks an OAuth state value as consumed. The state itself is
// the signed token, so the key uses its JWT ID.
func OAuthStateKey(stateID string) string {
	return fmt.Sprintf("oauth:state:%s", stateID)
}

func RunEventsChannel(brandID uuid.UUID) string {
	return fmt.Sprintf("brand:%s:runs", brandID)
}

func QueuePendingKey(queue string) string {
	return fmt.Sprintf("queue:%s:pending", queue)
}

func QueueProcessingKey(queue string) string {
	return fmt.Sprintf("queue:%s:processing", queue)
}
