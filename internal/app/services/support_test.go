package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/app/repositories"
	"github.com/famfund/famfund/internal/pkg/apperrors"
	"github.com/famfund/famfund/internal/pkg/keylock"
	"github.com/famfund/famfund/internal/pkg/websocket"
)

// fakeStore is an in-memory implementation of every store interface plus the
// transaction runner and event publisher. Transactions degrade to plain calls;
// the services' keyed locks provide the serialization the tests exercise.
type fakeStore struct {
	mu sync.Mutex

	communities     map[int64]*models.Community
	nextCommunityID int64

	members map[int64]map[int64]time.Time

	loans map[uuid.UUID]*models.Loan

	votes map[uuid.UUID]map[int64]models.VoteChoice

	events []*websocket.Event

	countErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		communities: make(map[int64]*models.Community),
		members:     make(map[int64]map[int64]time.Time),
		loans:       make(map[uuid.UUID]*models.Loan),
		votes:       make(map[uuid.UUID]map[int64]models.VoteChoice),
	}
}

// addCommunity seeds a community directly, bypassing the service layer.
func (f *fakeStore) addCommunity(name string, maxMembers int, memberIDs ...int64) *models.Community {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextCommunityID++
	c := &models.Community{
		ID:         f.nextCommunityID,
		Name:       name,
		MaxMembers: maxMembers,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.communities[c.ID] = c

	f.members[c.ID] = make(map[int64]time.Time)
	for _, userID := range memberIDs {
		f.members[c.ID][userID] = time.Now()
	}
	return c
}

// addLoan seeds a pending loan directly.
func (f *fakeStore) addLoan(communityID, requesterID int64, amount float64) *models.Loan {
	f.mu.Lock()
	defer f.mu.Unlock()

	loan := &models.Loan{
		ID:          uuid.New(),
		CommunityID: communityID,
		RequesterID: requesterID,
		Amount:      amount,
		Status:      models.LoanStatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.loans[loan.ID] = loan
	return loan
}

func (f *fakeStore) publishedEvents() []*websocket.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*websocket.Event(nil), f.events...)
}

// --- CommunityStore ---

func (f *fakeStore) Create(ctx context.Context, tx pgx.Tx, community *models.Community) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextCommunityID++
	stored := *community
	stored.ID = f.nextCommunityID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = time.Now()
	f.communities[stored.ID] = &stored
	f.members[stored.ID] = make(map[int64]time.Time)
	return stored.ID, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.communities[id]
	if !ok {
		return nil, apperrors.ErrCommunityNotFound
	}
	snapshot := *c
	return &snapshot, nil
}

func (f *fakeStore) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Community, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeStore) SetArchived(ctx context.Context, tx pgx.Tx, id, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.communities[id]
	if !ok || c.Version != expectedVersion {
		return apperrors.NewConflictError("Community was modified concurrently")
	}
	c.Archived = true
	c.Version++
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) List(ctx context.Context, search *string, offset uint64, limit int) ([]models.Community, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []models.Community
	for _, c := range f.communities {
		all = append(all, *c)
	}
	return all, int64(len(all)), nil
}

// --- MemberStore ---

func (f *fakeStore) Exists(ctx context.Context, q repositories.Querier, communityID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.members[communityID][userID]
	return ok, nil
}

func (f *fakeStore) Count(ctx context.Context, q repositories.Querier, communityID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.members[communityID]), nil
}

func (f *fakeStore) Add(ctx context.Context, tx pgx.Tx, communityID, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.members[communityID] == nil {
		f.members[communityID] = make(map[int64]time.Time)
	}
	if _, ok := f.members[communityID][userID]; ok {
		return 0, &pgconn.PgError{Code: "23505", ConstraintName: "community_members_unique"}
	}
	f.members[communityID][userID] = time.Now()
	return int64(len(f.members[communityID])), nil
}

func (f *fakeStore) ListByCommunity(ctx context.Context, communityID int64) ([]models.CommunityMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var members []models.CommunityMember
	for userID, joinedAt := range f.members[communityID] {
		members = append(members, models.CommunityMember{
			CommunityID: communityID,
			UserID:      userID,
			JoinedAt:    joinedAt,
		})
	}
	return members, nil
}

// --- LoanStore ---

func (f *fakeStore) CreateLoan(ctx context.Context, tx pgx.Tx, loan *models.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *loan
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = time.Now()
	f.loans[stored.ID] = &stored
	return nil
}

func (f *fakeStore) GetLoanByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	loan, ok := f.loans[id]
	if !ok {
		return nil, apperrors.ErrLoanNotFound
	}
	snapshot := *loan
	return &snapshot, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.LoanStatus, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	loan, ok := f.loans[id]
	if !ok || loan.Version != expectedVersion || loan.Status != models.LoanStatusPending {
		return apperrors.NewConflictError("Loan was finalized concurrently")
	}
	loan.Status = status
	loan.Version++
	loan.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) ListByRequester(ctx context.Context, requesterID int64) ([]models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var loans []models.Loan
	for _, loan := range f.loans {
		if loan.RequesterID == requesterID {
			loans = append(loans, *loan)
		}
	}
	return loans, nil
}

// --- VoteStore ---

func (f *fakeStore) Upsert(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, userID int64, choice models.VoteChoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.votes[loanID] == nil {
		f.votes[loanID] = make(map[int64]models.VoteChoice)
	}
	f.votes[loanID][userID] = choice
	return nil
}

func (f *fakeStore) Tally(ctx context.Context, q repositories.Querier, loanID uuid.UUID) (governance.Tally, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var tally governance.Tally
	for _, choice := range f.votes[loanID] {
		switch choice {
		case models.VoteChoiceApprove:
			tally.ApproveCount++
		case models.VoteChoiceReject:
			tally.RejectCount++
		}
	}
	return tally, nil
}

func (f *fakeStore) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var votes []models.LoanVote
	for userID, choice := range f.votes[loanID] {
		votes = append(votes, models.LoanVote{
			LoanID: loanID,
			UserID: userID,
			Choice: choice,
			CastAt: time.Now(),
		})
	}
	return votes, nil
}

// --- TxRunner ---

func (f *fakeStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// --- EventPublisher ---

func (f *fakeStore) Publish(event *websocket.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

// loanStoreAdapter maps the fake's loan methods onto the LoanStore interface,
// whose Create and GetByID names collide with the community methods.
type loanStoreAdapter struct {
	*fakeStore
}

func (a loanStoreAdapter) Create(ctx context.Context, tx pgx.Tx, loan *models.Loan) error {
	return a.CreateLoan(ctx, tx, loan)
}

func (a loanStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	return a.GetLoanByID(ctx, id)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newCommunityService(f *fakeStore, defaultMaxMembers int) CommunityService {
	return NewCommunityService(f, f, f, keylock.New(), f, defaultMaxMembers, testLogger())
}

func newLoanService(f *fakeStore, policy governance.Policy) LoanService {
	return NewLoanService(loanStoreAdapter{f}, f, f, f, f, keylock.New(), f, policy, testLogger())
}
