package tier

import "github.com/leca/tiered-images/internal/model"

// LinkMode says how the original is exposed.
type LinkMode int

const (
	LinkNone LinkMode = iota
	LinkPermanent
	LinkExpiring
)

func (m LinkMode) String() string {
	switch m {
	case LinkPermanent:
		return "permanent"
	case LinkExpiring:
		return "expiring"
	default:
		return "none"
	}
}

// Policy is a tier reduced to what the derivative pipeline acts on.
// PrimarySize and SecondarySize are 0 when the thumbnail is not produced;
// TTLSeconds is set only for LinkExpiring.
type Policy struct {
	PrimarySize   int
	SecondarySize int
	Link          LinkMode
	TTLSeconds    int
}

// ResolvePolicy evaluates a tier once. An expiration time always yields an
// expiring link, whether or not link_to_original is set.
func ResolvePolicy(t *model.AccountTier) Policy {
	var p Policy
	if t.ThumbnailSize1 != nil {
		p.PrimarySize = *t.ThumbnailSize1
	}
	if t.ThumbnailSize2 != nil {
		p.SecondarySize = *t.ThumbnailSize2
	}
	switch {
	case t.LinkExpirationTime != nil:
		p.Link = LinkExpiring
		p.TTLSeconds = *t.LinkExpirationTime
	case t.LinkToOriginal:
		p.Link = LinkPermanent
	}
	return p
}
