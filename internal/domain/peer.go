package domain

import (
	"errors"
	"fmt"
)

var ErrPeerKindMismatch = errors.New("peer kind does not match group identity")

// PeerAddress is the addressing form used to join a call and to query the group
// afterwards. It is either a ChannelPeer or a BasicGroupPeer.
type PeerAddress interface {
	Kind() GroupKind
	PeerID() int64
	String() string
}

type ChannelPeer struct {
	ChannelID  int64
	AccessHash int64
}

func (p ChannelPeer) Kind() GroupKind { return KindChannel }
func (p ChannelPeer) PeerID() int64   { return p.ChannelID }
func (p ChannelPeer) String() string  { return fmt.Sprintf("channel:%d", p.ChannelID) }

type BasicGroupPeer struct {
	ChatID int64
}

func (p BasicGroupPeer) Kind() GroupKind { return KindBasicGroup }
func (p BasicGroupPeer) PeerID() int64   { return p.ChatID }
func (p BasicGroupPeer) String() string  { return fmt.Sprintf("chat:%d", p.ChatID) }

// NewChannelPeer builds a ChannelPeer; the identity must be channel-like.
func NewChannelPeer(g GroupIdentity) (ChannelPeer, error) {
	if g.Kind != KindChannel {
		return ChannelPeer{}, fmt.Errorf("%w: want %s, got %s", ErrPeerKindMismatch, KindChannel, g.Kind)
	}
	return ChannelPeer{ChannelID: g.ID, AccessHash: g.AccessHash}, nil
}

// NewBasicGroupPeer builds a BasicGroupPeer; the identity must be a basic group.
func NewBasicGroupPeer(g GroupIdentity) (BasicGroupPeer, error) {
	if g.Kind != KindBasicGroup {
		return BasicGroupPeer{}, fmt.Errorf("%w: want %s, got %s", ErrPeerKindMismatch, KindBasicGroup, g.Kind)
	}
	return BasicGroupPeer{ChatID: g.ID}, nil
}

// PeerFor derives the peer variant matching the identity's discriminant.
func PeerFor(g GroupIdentity) (PeerAddress, error) {
	switch g.Kind {
	case KindChannel:
		return NewChannelPeer(g)
	case KindBasicGroup:
		return NewBasicGroupPeer(g)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrPeerKindMismatch, g.Kind)
	}
}
