package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/groupcall/internal/domain"
)

var ErrInvalidEntity = errors.New("invalid entity")

// ResolvePeer maps entity metadata to the identity and the peer address the call
// engine needs. Channel-like entities must carry an access hash.
func ResolvePeer(meta domain.EntityMetadata) (domain.GroupIdentity, domain.PeerAddress, error) {
	if meta.ID == 0 {
		return domain.GroupIdentity{}, nil, fmt.Errorf("%w: missing id", ErrInvalidEntity)
	}

	identity := domain.GroupIdentity{
		ID:    meta.ID,
		Kind:  domain.KindBasicGroup,
		Title: meta.Title,
	}
	if meta.ChannelLike() {
		if meta.AccessHash == nil {
			return domain.GroupIdentity{}, nil, fmt.Errorf("%w: channel %d has no access hash", ErrInvalidEntity, meta.ID)
		}
		identity.Kind = domain.KindChannel
		identity.AccessHash = *meta.AccessHash
	}

	peer, err := domain.PeerFor(identity)
	if err != nil {
		return domain.GroupIdentity{}, nil, fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return identity, peer, nil
}
