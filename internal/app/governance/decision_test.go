package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/famfund/famfund/internal/app/models"
)

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.Threshold)

	_, err = NewPolicy(0)
	assert.Error(t, err)

	_, err = NewPolicy(1)
	assert.Error(t, err)

	_, err = NewPolicy(-0.3)
	assert.Error(t, err)
}

func TestDecide_StrictMajority(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name        string
		tally       Tally
		memberCount int
		want        models.LoanStatus
	}{
		{
			name:        "no votes stays pending",
			tally:       Tally{},
			memberCount: 5,
			want:        models.LoanStatusPending,
		},
		{
			name:        "majority approves",
			tally:       Tally{ApproveCount: 3},
			memberCount: 5,
			want:        models.LoanStatusApproved,
		},
		{
			name:        "majority rejects",
			tally:       Tally{RejectCount: 3},
			memberCount: 5,
			want:        models.LoanStatusRejected,
		},
		{
			name:        "exactly half of even community decides nothing",
			tally:       Tally{ApproveCount: 2},
			memberCount: 4,
			want:        models.LoanStatusPending,
		},
		{
			name:        "half plus one of even community approves",
			tally:       Tally{ApproveCount: 3},
			memberCount: 4,
			want:        models.LoanStatusApproved,
		},
		{
			name:        "two approvals in community of four stays pending",
			tally:       Tally{ApproveCount: 2, RejectCount: 1},
			memberCount: 4,
			want:        models.LoanStatusPending,
		},
		{
			name:        "single member community approves immediately",
			tally:       Tally{ApproveCount: 1},
			memberCount: 1,
			want:        models.LoanStatusApproved,
		},
		{
			name:        "zero members never decides",
			tally:       Tally{ApproveCount: 10},
			memberCount: 0,
			want:        models.LoanStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Decide(tt.tally, tt.memberCount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide_CustomThreshold(t *testing.T) {
	policy, err := NewPolicy(0.66)
	require.NoError(t, err)

	// 6 of 10 does not strictly exceed 6.6, 7 does.
	assert.Equal(t, models.LoanStatusPending, policy.Decide(Tally{ApproveCount: 6}, 10))
	assert.Equal(t, models.LoanStatusApproved, policy.Decide(Tally{ApproveCount: 7}, 10))
	assert.Equal(t, models.LoanStatusRejected, policy.Decide(Tally{RejectCount: 7}, 10))
}

func TestDecide_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		memberCount := rapid.IntRange(0, 200).Draw(t, "member_count")
		approve := rapid.IntRange(0, memberCount).Draw(t, "approve")
		reject := rapid.IntRange(0, memberCount-approve).Draw(t, "reject")

		policy := DefaultPolicy()
		tally := Tally{ApproveCount: approve, RejectCount: reject}

		first := policy.Decide(tally, memberCount)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, policy.Decide(tally, memberCount))
		}

		// Approvals and rejections cannot both hold a strict majority.
		if first == models.LoanStatusApproved {
			assert.Greater(t, float64(approve), 0.5*float64(memberCount))
		}
		if first == models.LoanStatusRejected {
			assert.Greater(t, float64(reject), 0.5*float64(memberCount))
		}
	})
}
