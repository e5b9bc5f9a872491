package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAllowed(t *testing.T) {
	tests := []struct {
		from  Status
		event Event
		want  Status
	}{
		{StatusDraft, EventApprove, StatusCurrent},
		{StatusDraft, EventReject, StatusRejected},
		{StatusDraft, EventCancel, StatusCanceled},
		{StatusDraft, EventSupersede, StatusArchived},
		{StatusCurrent, EventCancel, StatusCanceled},
		{StatusCurrent, EventSupersede, StatusArchived},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRejected(t *testing.T) {
	events := []Event{EventApprove, EventReject, EventCancel, EventSupersede}
	for _, from := range []Status{StatusRejected, StatusCanceled, StatusArchived} {
		for _, ev := range events {
			got, err := Next(from, ev)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s/%s", from, ev)
			assert.Equal(t, from, got)
		}
	}

	_, err := Next(StatusCurrent, EventApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Next(StatusCurrent, EventReject)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusArchived.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusCurrent.Terminal())

	assert.True(t, StatusDraft.Live())
	assert.False(t, StatusArchived.Live())

	assert.True(t, Status("current").Valid())
	assert.False(t, Status("pending").Valid())
}
