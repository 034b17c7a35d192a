package coupon

import "context"

// Ref is a stable external identifier stored in a coupon's attachment map.
// It is a weak reference: the referent may be deleted independently of the
// coupon, after which resolution yields absent rather than an error.
type Ref string

// AttachmentResolver resolves attachment references lazily on read.
// A dangling reference resolves to (nil, false, nil).
type AttachmentResolver interface {
	Resolve(ctx context.Context, ref Ref) (any, bool, error)
}

// ResolveAttachments resolves every attachment of a coupon, silently dropping
// dangling references. The returned map contains only live referents.
func ResolveAttachments(ctx context.Context, r AttachmentResolver, c *Coupon) (map[string]any, error) {
	if len(c.Attachments) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(c.Attachments))
	for key, ref := range c.Attachments {
		v, ok, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

// StaticResolver resolves references from an in-memory map. It backs tests
// and deployments without an external object registry.
type StaticResolver map[Ref]any

// Resolve looks the reference up in the map.
func (s StaticResolver) Resolve(_ context.Context, ref Ref) (any, bool, error) {
	v, ok := s[ref]
	return v, ok, nil
}
