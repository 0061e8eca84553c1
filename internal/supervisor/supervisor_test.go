package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectPolicyFirstDelayWindow(t *testing.T) {
	policy := DefaultReconnectPolicy()
	for i := 0; i < 50; i++ {
		d := policy.delay(1)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 4*time.Second)
	}
}

func TestReconnectPolicyCapsAtMaxDelay(t *testing.T) {
	policy := DefaultReconnectPolicy()
	d := policy.delay(20)
	assert.Less(t, d, 2*policy.MaxDelay)
}

func TestReconnectPolicyGrowsWithAttempt(t *testing.T) {
	policy := ReconnectPolicy{InitialDelay: 2 * time.Second, Multiplier: 2.0, MaxDelay: 60 * time.Second}
	// Attempt 2's minimum possible delay (base with zero jitter) equals
	// attempt 1's maximum possible delay (full jitter), confirming the
	// ranges are back-to-back rather than overlapping.
	attempt1Max := 2 * policy.InitialDelay
	attempt2Min := time.Duration(float64(policy.InitialDelay) * policy.Multiplier)
	assert.Equal(t, attempt1Max, attempt2Min)
}
