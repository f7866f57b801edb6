package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewfeed/internal/models"
)

func TestRequestFriendship(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")

	detail, err := env.friendship.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, detail.SenderID)
	assert.Equal(t, b.ID, detail.ReceiverID)
	assert.Equal(t, models.FriendshipStatusPending, detail.Status)
	require.NotNil(t, detail.Sender)
	require.NotNil(t, detail.Receiver)
	assert.Equal(t, "Ann", detail.Sender.Name)
	assert.Equal(t, "bob@example.com", detail.Receiver.Email)
	assert.NotEmpty(t, detail.CreatedAt)

	assert.Equal(t, []string{EventFriendshipRequested}, env.eventTypes(t, "friendships"))
}

func TestRequestFriendship_DuplicateEitherDirection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")

	_, err := env.friendship.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = env.friendship.RequestFriendship(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrDuplicateRelationship)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.friendship.RequestFriendship(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, ErrDuplicateRelationship)

	// Still duplicate once accepted.
	f, err := env.friendships.FindBetween(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.friendship.AcceptFriendship(ctx, b.ID, f.ID)
	require.NoError(t, err)
	_, err = env.friendship.RequestFriendship(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, ErrDuplicateRelationship)
}

func TestRequestFriendship_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")

	_, err := env.friendship.RequestFriendship(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSelfRequest)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.friendship.RequestFriendship(ctx, a.ID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.friendship.RequestFriendship(ctx, a.ID, uuid.Nil)
	assert.ErrorIs(t, err, ErrMissingReceiver)

	assert.Empty(t, env.producer.Sent())
}

func TestFriendRequestInput_ReceiverUUID(t *testing.T) {
	want := uuid.New()

	tests := []struct {
		name    string
		input   FriendRequestInput
		want    uuid.UUID
		wantErr error
	}{
		{name: "valid", input: FriendRequestInput{ReceiverID: want.String()}, want: want},
		{name: "missing", input: FriendRequestInput{}, wantErr: ErrMissingReceiver},
		{name: "not a uuid", input: FriendRequestInput{ReceiverID: "42"}, wantErr: ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.ReceiverUUID()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestFriendship_AfterRemovalAllowed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")

	req, err := env.friendship.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, env.friendship.RemoveFriendship(ctx, b.ID, req.ID))

	_, err = env.friendship.RequestFriendship(ctx, b.ID, a.ID)
	assert.NoError(t, err)
}

func TestAcceptFriendship(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")
	c := env.addUser(t, "Cat", "cat@example.com")

	req, err := env.friendship.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)

	t.Run("sender cannot accept", func(t *testing.T) {
		_, err := env.friendship.AcceptFriendship(ctx, a.ID, req.ID)
		assert.ErrorIs(t, err, ErrNotReceiver)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("stranger cannot accept", func(t *testing.T) {
		_, err := env.friendship.AcceptFriendship(ctx, c.ID, req.ID)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := env.friendship.AcceptFriendship(ctx, b.ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("receiver accepts once", func(t *testing.T) {
		detail, err := env.friendship.AcceptFriendship(ctx, b.ID, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.FriendshipStatusAccepted, detail.Status)
		assert.Equal(t, "Ann", detail.Sender.Name)
		assert.Equal(t, "Bob", detail.Receiver.Name)

		_, err = env.friendship.AcceptFriendship(ctx, b.ID, req.ID)
		assert.ErrorIs(t, err, ErrAlreadyAccepted)
		assert.ErrorIs(t, err, ErrAlreadyInState)
	})
}

func TestNotFoundMessages(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	missing := uuid.New()

	_, err := env.friendship.AcceptFriendship(ctx, a.ID, missing)
	require.ErrorIs(t, err, ErrFriendRequestNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Friend request not found", err.Error())

	err = env.friendship.RemoveFriendship(ctx, a.ID, missing)
	require.ErrorIs(t, err, ErrFriendshipNotFound)
	assert.Equal(t, "Friendship not found", err.Error())
}

func TestScenario_RequestAcceptListings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")

	accepted := env.befriend(t, a, b)

	friendsOfA, err := env.friendship.ListFriends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friendsOfA, 1)
	assert.Equal(t, b.ID, friendsOfA[0].Friend.ID)
	assert.Equal(t, accepted.ID, friendsOfA[0].FriendshipID)

	friendsOfB, err := env.friendship.ListFriends(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, friendsOfB, 1)
	assert.Equal(t, a.ID, friendsOfB[0].Friend.ID)

	incoming, err := env.friendship.ListPendingIncoming(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	outgoing, err := env.friendship.ListPendingOutgoing(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	assert.Equal(t, []string{EventFriendshipRequested, EventFriendshipAccepted}, env.eventTypes(t, "friendships"))
}

func TestPendingListings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")
	c := env.addUser(t, "Cat", "cat@example.com")

	fromB, err := env.friendship.RequestFriendship(ctx, b.ID, a.ID)
	require.NoError(t, err)
	fromC, err := env.friendship.RequestFriendship(ctx, c.ID, a.ID)
	require.NoError(t, err)

	incoming, err := env.friendship.ListPendingIncoming(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	// newest first
	assert.Equal(t, fromC.ID, incoming[0].FriendshipID)
	assert.Equal(t, "Cat", incoming[0].Sender.Name)
	assert.Equal(t, fromB.ID, incoming[1].FriendshipID)

	outgoing, err := env.friendship.ListPendingOutgoing(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, a.ID, outgoing[0].Receiver.ID)

	friends, err := env.friendship.ListFriends(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestRemoveFriendship(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name    string
		remover func(a, b *models.User) *models.User
	}{
		{"by sender", func(a, _ *models.User) *models.User { return a }},
		{"by receiver", func(_, b *models.User) *models.User { return b }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			a := env.addUser(t, "Ann", "ann@example.com")
			b := env.addUser(t, "Bob", "bob@example.com")
			f := env.befriend(t, a, b)

			require.NoError(t, env.friendship.RemoveFriendship(ctx, tc.remover(a, b).ID, f.ID))

			for _, u := range []*models.User{a, b} {
				friends, err := env.friendship.ListFriends(ctx, u.ID)
				require.NoError(t, err)
				assert.Empty(t, friends)
				incoming, err := env.friendship.ListPendingIncoming(ctx, u.ID)
				require.NoError(t, err)
				assert.Empty(t, incoming)
				outgoing, err := env.friendship.ListPendingOutgoing(ctx, u.ID)
				require.NoError(t, err)
				assert.Empty(t, outgoing)
			}
		})
	}
}

func TestRemoveFriendship_PendingAndErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	b := env.addUser(t, "Bob", "bob@example.com")
	c := env.addUser(t, "Cat", "cat@example.com")

	req, err := env.friendship.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)

	err = env.friendship.RemoveFriendship(ctx, c.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Rejecting a pending request is a removal by the receiver.
	require.NoError(t, env.friendship.RemoveFriendship(ctx, b.ID, req.ID))

	err = env.friendship.RemoveFriendship(ctx, b.ID, req.ID)
	assert.ErrorIs(t, err, ErrFriendshipNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{EventFriendshipRequested, EventFriendshipRemoved}, env.eventTypes(t, "friendships"))
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	me := env.addUser(t, "Brewer Me", "me@brew.io")
	friend := env.addUser(t, "Brewer Friend", "friend@brew.io")
	sent := env.addUser(t, "Brewer Sent", "sent@brew.io")
	received := env.addUser(t, "Brewer Received", "received@brew.io")
	stranger := env.addUser(t, "Brewer Stranger", "stranger@brew.io")
	env.addUser(t, "Nobody", "nobody@elsewhere.io")

	f := env.befriend(t, me, friend)
	sentReq, err := env.friendship.RequestFriendship(ctx, me.ID, sent.ID)
	require.NoError(t, err)
	receivedReq, err := env.friendship.RequestFriendship(ctx, received.ID, me.ID)
	require.NoError(t, err)

	results, err := env.friendship.SearchUsers(ctx, me.ID, "BREW")
	require.NoError(t, err)
	require.Len(t, results, 4)

	byID := make(map[uuid.UUID]*models.UserSearchResult)
	for _, r := range results {
		assert.NotEqual(t, me.ID, r.ID, "searcher must not appear in results")
		byID[r.ID] = r
	}

	assert.Equal(t, models.RelationshipFriends, byID[friend.ID].FriendshipStatus)
	assert.Equal(t, f.ID, *byID[friend.ID].FriendshipID)
	assert.Equal(t, models.RelationshipRequestSent, byID[sent.ID].FriendshipStatus)
	assert.Equal(t, sentReq.ID, *byID[sent.ID].FriendshipID)
	assert.Equal(t, models.RelationshipRequestReceived, byID[received.ID].FriendshipStatus)
	assert.Equal(t, receivedReq.ID, *byID[received.ID].FriendshipID)
	assert.Equal(t, models.RelationshipNone, byID[stranger.ID].FriendshipStatus)
	assert.Nil(t, byID[stranger.ID].FriendshipID)
}

func TestSearchUsers_FromReceiverSide(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ann := env.addUser(t, "Ann", "ann@example.com")
	bob := env.addUser(t, "Bob", "bob@example.com")

	req, err := env.friendship.RequestFriendship(ctx, ann.ID, bob.ID)
	require.NoError(t, err)

	results, err := env.friendship.SearchUsers(ctx, bob.ID, "ann")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ann.ID, results[0].ID)
	assert.Equal(t, models.RelationshipRequestReceived, results[0].FriendshipStatus)
	require.NotNil(t, results[0].FriendshipID)
	assert.Equal(t, req.ID, *results[0].FriendshipID)

	results, err = env.friendship.SearchUsers(ctx, ann.ID, "bob")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.RelationshipRequestSent, results[0].FriendshipStatus)
	assert.Equal(t, req.ID, *results[0].FriendshipID)
}

func TestSearchUsers_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	me := env.addUser(t, "Me", "me@example.com")

	_, err := env.friendship.SearchUsers(context.Background(), me.ID, "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearchUsers_Limit(t *testing.T) {
	env := newTestEnv(t)
	me := env.addUser(t, "Me", "me@example.com")
	for i := 0; i < 25; i++ {
		env.addUser(t, "Taster", uuid.NewString()+"@taster.io")
	}

	results, err := env.friendship.SearchUsers(context.Background(), me.ID, "taster")
	require.NoError(t, err)
	assert.Len(t, results, 20)
}

func TestFriendshipService_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	a := env.addUser(t, "Ann", "ann@example.com")
	env.store.SetShouldFail(true)

	_, err := env.friendship.ListFriends(context.Background(), a.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
