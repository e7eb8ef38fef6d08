package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgbportal/internal/domain"
)

func recipient(id int64) domain.Notification {
	return domain.Notification{ID: fmt.Sprintf("n-%d", id), ApplicantID: &id, Title: "hello"}
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "applicant:7", ApplicantChannel(7))
	assert.Equal(t, "admin:3", AdminChannel(3))
	assert.Equal(t, "role:CEO", RoleChannel(domain.RoleCEO))
}

func TestPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("applicant:1")
	defer cancel()

	h.Publish("applicant:1", recipient(1))

	require.Len(t, ch, 1)
	n := <-ch
	assert.Equal(t, "n-1", n.ID)
}

func TestPublishIgnoresOtherChannels(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("applicant:1")
	defer cancel()

	h.Publish("applicant:2", recipient(2))

	assert.Empty(t, ch)
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	h := NewHub()
	first, cancelFirst := h.Subscribe("role:CEO")
	defer cancelFirst()
	second, cancelSecond := h.Subscribe("role:CEO")
	defer cancelSecond()

	h.Publish("role:CEO", recipient(9))

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("admin:5")
	cancel()

	h.Publish("admin:5", recipient(5))

	assert.Empty(t, ch)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("applicant:1")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish("applicant:1", recipient(1))
	}

	// Publish must return even when the buffer is full.
	assert.Len(t, ch, subscriberBuffer)
}
