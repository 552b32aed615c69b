package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendnet/internal/models"
	"friendnet/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.FriendRequestEvent
	err    error
}

func (p *recordingPublisher) PublishFriendRequestEvent(_ context.Context, e models.FriendRequestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type ledgerFixture struct {
	store *storage.MemoryStore
	svc   FriendRequestService
	pub   *recordingPublisher
	alice *models.User
	bob   *models.User
	carol *models.User
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	f := &ledgerFixture{
		store: store,
		pub:   pub,
		svc:   NewFriendRequestService(store.Users(), store.FriendRequests(), pub),
	}
	for _, name := range []string{"alice", "bob", "carol"} {
		u := &models.User{Username: name, Email: name + "@x.com", PasswordHash: "x"}
		require.NoError(t, store.Users().Create(context.Background(), u))
		switch name {
		case "alice":
			f.alice = u
		case "bob":
			f.bob = u
		case "carol":
			f.carol = u
		}
	}
	return f
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	fr, err := f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.NotZero(t, fr.ID)
	assert.Equal(t, models.FriendRequestStatusPending, fr.Status)
	assert.Equal(t, f.alice.ID, fr.SenderID)
	assert.Equal(t, f.bob.ID, fr.ReceiverID)
	assert.False(t, fr.CreatedAt.IsZero())

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, models.FriendRequestCreated, f.pub.events[0].Type)
	assert.Equal(t, fr.ID, f.pub.events[0].RequestID)

	t.Run("duplicate pending is a conflict", func(t *testing.T) {
		_, err := f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
		assert.ErrorIs(t, err, ErrFriendRequestExists)
		assert.Equal(t, KindConflict, KindOf(err))
	})

	t.Run("reverse direction is a separate pair", func(t *testing.T) {
		_, err := f.svc.CreateRequest(ctx, f.bob.ID, f.alice.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := f.svc.CreateRequest(ctx, f.alice.ID, 999)
		assert.ErrorIs(t, err, ErrReceiverNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("self request", func(t *testing.T) {
		_, err := f.svc.CreateRequest(ctx, f.alice.ID, f.alice.ID)
		assert.ErrorIs(t, err, ErrFriendRequestSelf)
	})

	t.Run("new request allowed once the previous one is answered", func(t *testing.T) {
		_, err := f.svc.RejectRequest(ctx, f.bob.ID, fr.ID)
		require.NoError(t, err)
		_, err = f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
		assert.NoError(t, err)
	})
}

func TestCreateRequestConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrFriendRequestExists)
	}
	assert.Equal(t, 1, succeeded)
}

func TestAcceptAndRejectRules(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	fr, err := f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	t.Run("only the receiver may answer", func(t *testing.T) {
		for _, caller := range []uint{f.alice.ID, f.carol.ID} {
			_, err := f.svc.AcceptRequest(ctx, caller, fr.ID)
			assert.ErrorIs(t, err, ErrNotReceiver)
			_, err = f.svc.RejectRequest(ctx, caller, fr.ID)
			assert.ErrorIs(t, err, ErrNotReceiver)
			assert.Equal(t, KindForbidden, KindOf(err))
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.svc.AcceptRequest(ctx, f.bob.ID, 404)
		assert.ErrorIs(t, err, ErrFriendRequestNotFound)
	})

	t.Run("accept", func(t *testing.T) {
		got, err := f.svc.AcceptRequest(ctx, f.bob.ID, fr.ID)
		require.NoError(t, err)
		assert.Equal(t, models.FriendRequestStatusAccepted, got.Status)

		last := f.pub.events[len(f.pub.events)-1]
		assert.Equal(t, models.FriendRequestAccepted, last.Type)
		assert.Equal(t, f.bob.ID, last.ActorID)
	})

	t.Run("terminal states do not move", func(t *testing.T) {
		_, err := f.svc.RejectRequest(ctx, f.bob.ID, fr.ID)
		assert.ErrorIs(t, err, ErrRequestNotPending)
		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, fr.ID)
		assert.ErrorIs(t, err, ErrRequestNotPending)

		stored, err := f.store.FriendRequests().GetRequestByID(ctx, fr.ID)
		require.NoError(t, err)
		assert.Equal(t, models.FriendRequestStatusAccepted, stored.Status)
	})

	t.Run("wrong caller on a terminal request is still forbidden", func(t *testing.T) {
		_, err := f.svc.RejectRequest(ctx, f.carol.ID, fr.ID)
		assert.ErrorIs(t, err, ErrNotReceiver)
	})
}

func TestRejectRequest(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	fr, err := f.svc.CreateRequest(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)

	got, err := f.svc.RejectRequest(ctx, f.alice.ID, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestStatusRejected, got.Status)
	assert.Equal(t, models.FriendRequestRejected, f.pub.events[len(f.pub.events)-1].Type)

	_, err = f.svc.AcceptRequest(ctx, f.alice.ID, fr.ID)
	assert.ErrorIs(t, err, ErrRequestNotPending)
}

func TestPublishFailureDoesNotFailTheWrite(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.pub.err = errors.New("broker down")

	fr, err := f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.bob.ID, fr.ID)
	require.NoError(t, err)
}

func TestNilPublisher(t *testing.T) {
	store := storage.NewMemoryStore()
	users := store.Users()
	a := &models.User{Username: "a", Email: "a@x.com"}
	b := &models.User{Username: "b", Email: "b@x.com"}
	require.NoError(t, users.Create(context.Background(), a))
	require.NoError(t, users.Create(context.Background(), b))

	svc := NewFriendRequestService(users, store.FriendRequests(), nil)
	_, err := svc.CreateRequest(context.Background(), a.ID, b.ID)
	assert.NoError(t, err)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	ab, err := f.svc.CreateRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateRequest(ctx, f.alice.ID, f.carol.ID)
	require.NoError(t, err)
	cb, err := f.svc.CreateRequest(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(ctx, f.bob.ID, ab.ID)
	require.NoError(t, err)
	_, err = f.svc.RejectRequest(ctx, f.alice.ID, cb.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, f.alice.ID, DirectionSent)
	require.NoError(t, err)
	assert.Equal(t, []models.FriendRequestView{
		{SenderName: "alice", ReceiverName: "carol", Status: models.FriendRequestStatusPending},
	}, pending)

	accepted, err := f.svc.ListAccepted(ctx, f.alice.ID, DirectionSent)
	require.NoError(t, err)
	assert.Equal(t, []models.FriendRequestView{
		{SenderName: "alice", ReceiverName: "bob", Status: models.FriendRequestStatusAccepted},
	}, accepted)

	// bob only received; his sent lists are empty but not nil
	none, err := f.svc.ListAccepted(ctx, f.bob.ID, DirectionSent)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	received, err := f.svc.ListAccepted(ctx, f.bob.ID, DirectionReceived)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].SenderName)

	carolPending, err := f.svc.ListPending(ctx, f.carol.ID, DirectionReceived)
	require.NoError(t, err)
	require.Len(t, carolPending, 1)
	assert.Equal(t, "alice", carolPending[0].SenderName)

	_, err = f.svc.ListPending(ctx, f.alice.ID, Direction("sideways"))
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionSent, d)

	d, err = ParseDirection("received")
	require.NoError(t, err)
	assert.Equal(t, DirectionReceived, d)

	_, err = ParseDirection("both")
	assert.Equal(t, KindValidation, KindOf(err))
}
