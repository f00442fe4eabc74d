package relation_test

import (
	"context"
	"errors"
	"testing"

	matchmodel "PRelay/module/match/model"
	"PRelay/module/relation"
	"PRelay/module/relation/mocks"
	usermodel "PRelay/module/user/model"
	"PRelay/tools/errs"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "64b7f0c2a1e4c3d2b1a09f01"
	bob   = "64b7f0c2a1e4c3d2b1a09f02"
	carol = "64b7f0c2a1e4c3d2b1a09f03"
	dave  = "64b7f0c2a1e4c3d2b1a09f04"
	erin  = "64b7f0c2a1e4c3d2b1a09f05"
)

func seeded() *relation.MemoryStore {
	s := relation.NewMemoryStore()
	for _, id := range []string{alice, bob, carol, dave, erin} {
		s.PutUser(usermodel.User{ID: id, Username: id[len(id)-2:]})
	}
	return s
}

func TestPeersOfUnionDedup(t *testing.T) {
	s := seeded()
	s.Befriend(alice, bob)
	s.Befriend(alice, carol)
	s.PutMatch(matchmodel.Match{User1ID: alice, User2ID: bob, Status: matchmodel.MatchAccepted})
	s.PutMatch(matchmodel.Match{User1ID: dave, User2ID: alice, Status: matchmodel.MatchAccepted})
	s.PutMatch(matchmodel.Match{User1ID: alice, User2ID: erin, Status: matchmodel.MatchPending})

	peers, err := relation.NewScoper(s, nil).PeersOf(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob, carol, dave}, peers.Slice())
	assert.True(t, peers.Has(dave))
	assert.False(t, peers.Has(erin), "pending match grants nothing")
}

func TestPeersOfFiltersCorruptFriendIDs(t *testing.T) {
	s := seeded()
	s.PutUser(usermodel.User{ID: alice, FriendIDs: []string{bob, "not-an-id", "", "[object Object]", carol}})

	peers, err := relation.NewScoper(s, nil).PeersOf(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob, carol}, peers.Slice())
}

func TestPeersOfFriendSymmetry(t *testing.T) {
	s := seeded()
	s.Befriend(alice, bob)
	s.Befriend(carol, dave)
	sc := relation.NewScoper(s, nil)
	ctx := context.Background()

	users := []string{alice, bob, carol, dave, erin}
	for _, a := range users {
		for _, b := range users {
			if a == b {
				continue
			}
			pa, err := sc.PeersOf(ctx, a)
			require.NoError(t, err)
			pb, err := sc.PeersOf(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, pa.Has(b), pb.Has(a), "%s/%s", a, b)
		}
	}
}

func TestPeersOfNotCached(t *testing.T) {
	s := seeded()
	sc := relation.NewScoper(s, nil)
	ctx := context.Background()

	peers, err := sc.PeersOf(ctx, alice)
	require.NoError(t, err)
	assert.False(t, peers.Has(bob))

	s.PutMatch(matchmodel.Match{User1ID: bob, User2ID: alice, Status: matchmodel.MatchAccepted})
	peers, err = sc.PeersOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, peers.Has(bob))
}

func TestPeersOfErrors(t *testing.T) {
	sc := relation.NewScoper(seeded(), nil)
	ctx := context.Background()

	_, err := sc.PeersOf(ctx, "64b7f0c2a1e4c3d2b1a09fff")
	assert.True(t, errors.Is(err, errs.ErrUserNotFound))

	_, err = sc.PeersOf(ctx, "bad")
	assert.True(t, errors.Is(err, errs.ErrInvalidIdentifier))
}

func TestPeersOfStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sc := relation.NewScoper(store, nil)
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("user lookup fails", func(t *testing.T) {
		store.EXPECT().FindUserByID(gomock.Any(), alice).Return(nil, boom)
		_, err := sc.PeersOf(ctx, alice)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, errs.ErrUserNotFound))
	})

	t.Run("match lookup fails", func(t *testing.T) {
		store.EXPECT().FindUserByID(gomock.Any(), alice).Return(&usermodel.User{ID: alice, FriendIDs: []string{bob}}, nil)
		store.EXPECT().FindAcceptedMatchesInvolving(gomock.Any(), alice).Return(nil, boom)
		_, err := sc.PeersOf(ctx, alice)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("match with self and junk", func(t *testing.T) {
		store.EXPECT().FindUserByID(gomock.Any(), alice).Return(&usermodel.User{ID: alice}, nil)
		store.EXPECT().FindAcceptedMatchesInvolving(gomock.Any(), alice).Return([]matchmodel.Match{
			{User1ID: alice, User2ID: alice, Status: matchmodel.MatchAccepted},
			{User1ID: alice, User2ID: "garbage", Status: matchmodel.MatchAccepted},
			{User1ID: carol, User2ID: alice, Status: matchmodel.MatchAccepted},
		}, nil)
		peers, err := sc.PeersOf(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, []string{carol}, peers.Slice())
	})
}

func TestFriendsOf(t *testing.T) {
	s := seeded()
	s.Befriend(alice, bob)
	friends, err := relation.NewScoper(s, nil).FriendsOf(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, friends)
}
