package webhook_handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chargedPayload = `{
  "entity": "event",
  "account_id": "acc_F7cqRDCMTCRZ1t",
  "event": "subscription.charged",
  "contains": ["subscription", "payment"],
  "payload": {
    "subscription": {
      "entity": {
        "id": "sub_00000000000001",
        "plan_id": "plan_00000000000001",
        "status": "active",
        "notes": {"user_id": "user-42", "plan_id": "starter"},
        "created_at": 1580219046
      }
    },
    "payment": {
      "entity": {
        "id": "pay_00000000000001",
        "amount": 99900,
        "status": "captured",
        "notes": []
      }
    }
  },
  "created_at": 1580219046
}`

const cancelledPayload = `{
  "entity": "event",
  "event": "subscription.cancelled",
  "contains": ["subscription"],
  "payload": {
    "subscription": {
      "entity": {
        "id": "sub_00000000000002",
        "plan_id": "plan_00000000000001",
        "status": "cancelled",
        "notes": {"user_id": "user-42"}
      }
    }
  },
  "created_at": 1580219999
}`

func TestParseEvent_Charged(t *testing.T) {
	ev, err := ParseEvent([]byte(chargedPayload))
	require.NoError(t, err)

	assert.Equal(t, EventSubscriptionCharged, ev.Event)
	assert.Equal(t, "user-42", ev.UserID())
	assert.Equal(t, "starter", ev.PlanNoteID())
	assert.Equal(t, "sub_00000000000001", ev.ProviderSubscriptionID())
	assert.Equal(t, "pay_00000000000001", ev.PaymentID())
	assert.Equal(t, time.Unix(1580219046, 0).UTC(), ev.NotificationTime())
}

func TestParseEvent_FallbackPaymentID(t *testing.T) {
	ev, err := ParseEvent([]byte(cancelledPayload))
	require.NoError(t, err)

	// No payment entity: the id must still be stable across redeliveries.
	assert.Equal(t, "webhook_sub_00000000000002_1580219999", ev.PaymentID())
	assert.Equal(t, "user-42", ev.UserID())
	assert.Equal(t, "", ev.PlanNoteID())
}

func TestParseEvent_Invalid(t *testing.T) {
	_, err := ParseEvent([]byte("not json"))
	require.Error(t, err)

	_, err = ParseEvent([]byte(`{"payload": {}}`))
	require.Error(t, err)
}

func TestNotes_EmptyArray(t *testing.T) {
	ev, err := ParseEvent([]byte(chargedPayload))
	require.NoError(t, err)

	pay := ev.PaymentEntity()
	require.NotNil(t, pay)
	assert.Empty(t, pay.Notes)
}
