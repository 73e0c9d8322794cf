package domain

// GroupID is the raw chat identifier as configured by the operator.
type GroupID int64

// GroupKind discriminates the two addressing families a group can belong to.
type GroupKind int

const (
	KindBasicGroup GroupKind = iota
	KindChannel
)

func (k GroupKind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindBasicGroup:
		return "basic_group"
	default:
		return "unknown"
	}
}

// EntityMetadata is what an entity lookup returns.
// Capability flags are presence based: a flag that exists at all, even when false,
// means the entity belongs to the channel family.
type EntityMetadata struct {
	ID         int64  `json:"id"`
	AccessHash *int64 `json:"access_hash,omitempty"`
	Megagroup  *bool  `json:"megagroup,omitempty"`
	Broadcast  *bool  `json:"broadcast,omitempty"`
	Title      string `json:"title,omitempty"`
}

// ChannelLike reports whether the metadata exposes a megagroup or broadcast flag.
func (m EntityMetadata) ChannelLike() bool {
	return m.Megagroup != nil || m.Broadcast != nil
}

// GroupIdentity is the resolved, immutable view of the target group.
type GroupIdentity struct {
	ID         int64
	AccessHash int64
	Kind       GroupKind
	Title      string
}
