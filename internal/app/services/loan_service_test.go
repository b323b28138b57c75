package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/app/models/dto"
	"github.com/famfund/famfund/internal/pkg/apperrors"
	"github.com/famfund/famfund/internal/pkg/websocket"
)

func submitRequest(amount float64) *dto.SubmitLoanRequest {
	return &dto.SubmitLoanRequest{Amount: amount}
}

func approveRequest() *dto.CastVoteRequest {
	return &dto.CastVoteRequest{Choice: string(models.VoteChoiceApprove)}
}

func rejectRequest() *dto.CastVoteRequest {
	return &dto.CastVoteRequest{Choice: string(models.VoteChoiceReject)}
}

func TestSubmitLoan(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2)

	resp, err := svc.SubmitLoan(context.Background(), community.ID, 1, submitRequest(250))
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusPending, resp.Status)

	loanID, err := uuid.Parse(resp.LoanID)
	require.NoError(t, err)

	loan, err := svc.GetLoan(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, community.ID, loan.CommunityID)
	assert.Equal(t, int64(1), loan.RequesterID)
	assert.Equal(t, 250.0, loan.Amount)
	assert.Equal(t, models.LoanStatusPending, loan.Status)
	assert.Equal(t, 2, loan.Tally.TotalEligibleVoters)

	events := store.publishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, websocket.EventLoanSubmitted, events[0].Type)
	assert.Equal(t, resp.LoanID, events[0].LoanID)
}

func TestSubmitLoan_InvalidAmount(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1)

	_, err := svc.SubmitLoan(context.Background(), community.ID, 1, submitRequest(0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = svc.SubmitLoan(context.Background(), community.ID, 1, submitRequest(-50))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestSubmitLoan_NonMember(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1)

	_, err := svc.SubmitLoan(context.Background(), community.ID, 99, submitRequest(100))
	assert.ErrorIs(t, err, apperrors.ErrNotMember)
}

func TestSubmitLoan_ArchivedCommunity(t *testing.T) {
	store := newFakeStore()
	communitySvc := newCommunityService(store, 100)
	loanSvc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1)

	_, err := communitySvc.ArchiveCommunity(context.Background(), community.ID)
	require.NoError(t, err)

	_, err = loanSvc.SubmitLoan(context.Background(), community.ID, 1, submitRequest(100))
	assert.ErrorIs(t, err, apperrors.ErrCommunityArchived)
}

func TestCastVote_InvalidChoice(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 2, &dto.CastVoteRequest{Choice: "MAYBE"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidChoice)
}

func TestCastVote_LoanNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())

	_, err := svc.CastVote(context.Background(), uuid.New(), 1, approveRequest())
	assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
}

func TestCastVote_NonMemberNotEligible(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 99, approveRequest())
	assert.ErrorIs(t, err, apperrors.ErrNotEligible)
}

func TestCastVote_BelowThresholdStaysPending(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3, 4, 5)
	loan := store.addLoan(community.ID, 1, 100)

	resp, err := svc.CastVote(context.Background(), loan.ID, 2, approveRequest())
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusPending, resp.Status)
	assert.Equal(t, 1, resp.Tally.ApproveCount)
	assert.Equal(t, 5, resp.Tally.TotalEligibleVoters)

	events := store.publishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, websocket.EventVoteCast, events[0].Type)
}

func TestCastVote_MajorityApproves(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3, 4, 5)
	loan := store.addLoan(community.ID, 1, 100)

	for _, voter := range []int64{1, 2} {
		resp, err := svc.CastVote(context.Background(), loan.ID, voter, approveRequest())
		require.NoError(t, err)
		assert.Equal(t, models.LoanStatusPending, resp.Status)
	}

	// Third approval of five members crosses the strict majority.
	resp, err := svc.CastVote(context.Background(), loan.ID, 3, approveRequest())
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusApproved, resp.Status)
	assert.Equal(t, 3, resp.Tally.ApproveCount)

	events := store.publishedEvents()
	require.Len(t, events, 4)
	assert.Equal(t, websocket.EventVoteCast, events[2].Type)
	assert.Equal(t, websocket.EventLoanDecided, events[3].Type)
	assert.Equal(t, models.LoanStatusApproved, events[3].Status)
}

func TestCastVote_MajorityRejects(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 2, rejectRequest())
	require.NoError(t, err)

	resp, err := svc.CastVote(context.Background(), loan.ID, 3, rejectRequest())
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusRejected, resp.Status)
}

func TestCastVote_ExactHalfOfEvenCommunityStaysPending(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3, 4)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 1, approveRequest())
	require.NoError(t, err)
	resp, err := svc.CastVote(context.Background(), loan.ID, 2, approveRequest())
	require.NoError(t, err)

	// 2 of 4 does not strictly exceed half.
	assert.Equal(t, models.LoanStatusPending, resp.Status)
}

func TestCastVote_RecastOverwritesPreviousChoice(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	resp, err := svc.CastVote(context.Background(), loan.ID, 2, approveRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Tally.ApproveCount)
	assert.Equal(t, 0, resp.Tally.RejectCount)

	resp, err = svc.CastVote(context.Background(), loan.ID, 2, rejectRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Tally.ApproveCount)
	assert.Equal(t, 1, resp.Tally.RejectCount)
	assert.Equal(t, models.LoanStatusPending, resp.Status)
}

func TestCastVote_TerminalLoanRejectsFurtherVotes(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 1, approveRequest())
	require.NoError(t, err)
	resp, err := svc.CastVote(context.Background(), loan.ID, 2, approveRequest())
	require.NoError(t, err)
	require.Equal(t, models.LoanStatusApproved, resp.Status)

	_, err = svc.CastVote(context.Background(), loan.ID, 3, approveRequest())
	assert.ErrorIs(t, err, apperrors.ErrLoanNotPending)
}

// Two decisive votes racing must produce exactly one terminal transition and
// one decision event.
func TestCastVote_ConcurrentDecisiveVotes(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 1, approveRequest())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	for i, voter := range []int64{2, 3} {
		go func(slot int, userID int64) {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), loan.ID, userID, approveRequest())
			results[slot] = err
		}(i, voter)
	}
	wg.Wait()

	// Under the loan lock the first racing vote finalizes the loan and the
	// second finds it terminal.
	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrLoanNotPending)
	}
	assert.Equal(t, 1, succeeded)

	decided := 0
	for _, event := range store.publishedEvents() {
		if event.Type == websocket.EventLoanDecided {
			decided++
		}
	}
	assert.Equal(t, 1, decided)

	final, err := svc.GetLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusApproved, final.Status)
}

// Publishing happens inside the loan's critical section, so concurrent votes
// emit tally events in the order the votes were recorded, never a stale tally
// after a newer one.
func TestCastVote_ConcurrentVotesPublishTalliesInOrder(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())

	// 20 members, 8 approvals: well below the majority threshold, so every
	// vote leaves the loan pending and emits exactly one VOTE_CAST event.
	members := make([]int64, 0, 20)
	for i := int64(1); i <= 20; i++ {
		members = append(members, i)
	}
	community := store.addCommunity("Circle", 50, members...)
	loan := store.addLoan(community.ID, 1, 500)

	const voters = 8
	var wg sync.WaitGroup
	wg.Add(voters)
	for i := 0; i < voters; i++ {
		go func(voterID int64) {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), loan.ID, voterID, approveRequest())
			assert.NoError(t, err)
		}(int64(i + 1))
	}
	wg.Wait()

	events := store.publishedEvents()
	require.Len(t, events, voters)
	for i, event := range events {
		assert.Equal(t, websocket.EventVoteCast, event.Type)
		require.NotNil(t, event.Tally)
		assert.Equal(t, i+1, event.Tally.ApproveCount)
	}
}

func TestCastVote_ArchivedCommunityStillVotes(t *testing.T) {
	store := newFakeStore()
	communitySvc := newCommunityService(store, 100)
	loanSvc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := communitySvc.ArchiveCommunity(context.Background(), community.ID)
	require.NoError(t, err)

	// Archival blocks new joins and submissions, not votes on existing loans.
	resp, err := loanSvc.CastVote(context.Background(), loan.ID, 2, approveRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Tally.ApproveCount)
}

func TestListVotes(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2, 3, 4, 5)
	loan := store.addLoan(community.ID, 1, 100)

	_, err := svc.CastVote(context.Background(), loan.ID, 2, approveRequest())
	require.NoError(t, err)
	_, err = svc.CastVote(context.Background(), loan.ID, 3, rejectRequest())
	require.NoError(t, err)

	resp, err := svc.ListVotes(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID.String(), resp.LoanID)
	assert.Len(t, resp.Votes, 2)

	_, err = svc.ListVotes(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
}

func TestListLoansByRequester(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2)
	store.addLoan(community.ID, 1, 100)
	store.addLoan(community.ID, 1, 200)
	store.addLoan(community.ID, 2, 300)

	resp, err := svc.ListLoansByRequester(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, resp.Loans, 2)

	resp, err = svc.ListLoansByRequester(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, resp.Loans)
}

// A failing member count surfaces as an error rather than a zero eligible-voter
// total, matching GetLoan.
func TestListLoansByRequester_MemberCountFailure(t *testing.T) {
	store := newFakeStore()
	svc := newLoanService(store, governance.DefaultPolicy())
	community := store.addCommunity("Circle", 10, 1, 2)
	store.addLoan(community.ID, 1, 100)

	store.countErr = errors.New("connection reset")

	_, err := svc.ListLoansByRequester(context.Background(), 1)
	assert.Error(t, err)
}
