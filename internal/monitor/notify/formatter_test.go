package notify_test

import (
	"testing"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/notify"
	"github.com/stretchr/testify/assert"
)

func TestFormatDigestMessage_Empty(t *testing.T) {
	message := notify.FormatDigestMessage(nil, "Scheduled check")

	assert.Equal(t, "\U0001f50d Scheduled check: No changes detected.", message)
}

func TestFormatDigestMessage_WithDigests(t *testing.T) {
	digests := []*models.Digest{
		{ResourceName: "careers", Summary: "Two new openings", ChangeType: "new_job"},
		{ResourceName: "pricing", Summary: "Pro plan price increased", ChangeType: "price_change"},
	}

	message := notify.FormatDigestMessage(digests, "Check")

	assert.Contains(t, message, "Check: 2 change(s) found")
	assert.Contains(t, message, "\U0001f465 <b>careers</b>: Two new openings")
	assert.Contains(t, message, "\U0001f4b0 <b>pricing</b>: Pro plan price increased")
}

func TestFormatDigestMessage_UnknownChangeType(t *testing.T) {
	digests := []*models.Digest{
		{ResourceName: "blog", Summary: "Something changed", ChangeType: "mystery"},
	}

	message := notify.FormatDigestMessage(digests, "Check")

	assert.Contains(t, message, "\U0001f4c4 <b>blog</b>: Something changed")
}
