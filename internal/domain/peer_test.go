package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerFor_MatchesKind(t *testing.T) {
	p, err := PeerFor(GroupIdentity{ID: 5, AccessHash: 6, Kind: KindChannel})
	require.NoError(t, err)
	assert.Equal(t, ChannelPeer{ChannelID: 5, AccessHash: 6}, p)
	assert.Equal(t, "channel:5", p.String())

	p, err = PeerFor(GroupIdentity{ID: 7, Kind: KindBasicGroup})
	require.NoError(t, err)
	assert.Equal(t, BasicGroupPeer{ChatID: 7}, p)
	assert.Equal(t, int64(7), p.PeerID())
}

func TestNewPeer_RejectsWrongKind(t *testing.T) {
	_, err := NewChannelPeer(GroupIdentity{ID: 1, Kind: KindBasicGroup})
	require.ErrorIs(t, err, ErrPeerKindMismatch)

	_, err = NewBasicGroupPeer(GroupIdentity{ID: 1, AccessHash: 2, Kind: KindChannel})
	require.ErrorIs(t, err, ErrPeerKindMismatch)
}

func TestEntityMetadata_ChannelLike(t *testing.T) {
	f := false
	assert.False(t, EntityMetadata{ID: 1}.ChannelLike())
	assert.True(t, EntityMetadata{ID: 1, Broadcast: &f}.ChannelLike())
}
