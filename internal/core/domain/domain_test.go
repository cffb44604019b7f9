package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "9876543210", want: "9876543210", ok: true},
		{in: "+91 98765 43210", want: "9876543210", ok: true},
		{in: "91-6123456789", want: "6123456789", ok: true},
		{in: "5876543210"},
		{in: "98765"},
		{in: ""},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrValidation, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidateName(t *testing.T) {
	got, err := ValidateName("  Asha ")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got)

	_, err = ValidateName("A")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateProfileImage(t *testing.T) {
	got, err := ValidateProfileImage("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileImage, got)

	_, err = ValidateProfileImage("ftp://example.com/a.png")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMessageStatusRank(t *testing.T) {
	assert.Less(t, MessageSent.Rank(), MessageDelivered.Rank())
	assert.Less(t, MessageDelivered.Rank(), MessageRead.Rank())
	assert.False(t, MessageStatus("seen").Valid())
}

func TestChatParticipants(t *testing.T) {
	c := Chat{Participants: [2]UserID{"a", "b"}, Messages: []Message{
		{ReceiverID: "b", Status: MessageSent},
		{ReceiverID: "b", Status: MessageRead},
		{ReceiverID: "a", Status: MessageDelivered},
	}}
	other, ok := c.Other("a")
	assert.True(t, ok)
	assert.Equal(t, UserID("b"), other)
	_, ok = c.Other("z")
	assert.False(t, ok)
	assert.Equal(t, 1, c.UnreadFor("b"))
	assert.Equal(t, 1, c.UnreadFor("a"))

	x, y := OrderedPair("b", "a")
	assert.Equal(t, UserID("a"), x)
	assert.Equal(t, UserID("b"), y)
}

func TestRelayEventEncode(t *testing.T) {
	data, err := RelayEvent{Kind: EventChatListInvalidated, Payload: ChatUpdatedPayload{ChatID: "c1"}}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat-updated","payload":{"chatId":"c1"}}`, string(data))
}
