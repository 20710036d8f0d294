package enum_test

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/robalyx/followbot/internal/store/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnfollowReasonText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected enum.UnfollowReason
	}{
		{name: "followed back", input: `"FollowedBack"`, expected: enum.UnfollowReasonFollowedBack},
		{name: "expired lower case", input: `"expired"`, expected: enum.UnfollowReasonExpired},
		{name: "manual", input: `"Manual"`, expected: enum.UnfollowReasonManual},
		{name: "other", input: `"Other"`, expected: enum.UnfollowReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var reason enum.UnfollowReason
			require.NoError(t, sonic.Unmarshal([]byte(tt.input), &reason))
			assert.Equal(t, tt.expected, reason)
		})
	}
}

func TestUnfollowReasonRejectsUnknownNames(t *testing.T) {
	t.Parallel()

	var reason enum.UnfollowReason
	require.Error(t, sonic.Unmarshal([]byte(`"User followed back"`), &reason))

	_, err := enum.UnfollowReasonString("later")
	require.Error(t, err)
}

func TestUnfollowReasonMissingFieldIsOther(t *testing.T) {
	t.Parallel()

	var entry struct {
		Reason enum.UnfollowReason `json:"unfollow_reason"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(`{}`), &entry))
	assert.Equal(t, enum.UnfollowReasonOther, entry.Reason)
	assert.Equal(t, "Unknown reason", entry.Reason.Description())
}

func TestUnfollowReasonStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Other", "FollowedBack", "Expired", "Manual"}, enum.UnfollowReasonStrings())
	assert.True(t, enum.UnfollowReasonManual.IsAUnfollowReason())
	assert.False(t, enum.UnfollowReason(9).IsAUnfollowReason())
	assert.Equal(t, "UnfollowReason(9)", enum.UnfollowReason(9).String())
}

func TestUnfollowReasonMarshal(t *testing.T) {
	t.Parallel()

	data, err := sonic.Marshal(enum.UnfollowReasonExpired)
	require.NoError(t, err)
	assert.JSONEq(t, `"Expired"`, string(data))
}
