package ast

// Clone deep-copies the subtree rooted at h from src into dst, remapping
// every Handle it references (Children, Inherits, Specialization) to
// addresses within dst, and returns the new root Handle. Used by the
// template engine to assemble an instantiated tree out of definitions that
// live in other files' arenas.
func Clone(dst *Arena, src *Arena, h Handle) Handle {
	// Handle 0 is the arena's sentinel slot (and the zero value of an unset
	// Specialization field), never a real node.
	if h == NoHandle || h == 0 {
		return NoHandle
	}
	n := *src.Get(h) // value copy; slices still alias src until reassigned below

	n.Children = cloneHandles(dst, src, n.Children)
	n.Inherits = cloneHandles(dst, src, n.Inherits)
	n.Specialization = Clone(dst, src, n.Specialization)

	if n.Attrs != nil {
		attrs := make([]Attr, len(n.Attrs))
		copy(attrs, n.Attrs)
		n.Attrs = attrs
	}
	if n.Targets != nil {
		targets := make([]string, len(n.Targets))
		copy(targets, n.Targets)
		n.Targets = targets
	}
	if n.Except != nil {
		except := make([]string, len(n.Except))
		copy(except, n.Except)
		n.Except = except
	}

	return dst.Add(n)
}

func cloneHandles(dst *Arena, src *Arena, hs []Handle) []Handle {
	if hs == nil {
		return nil
	}
	out := make([]Handle, len(hs))
	for i, h := range hs {
		out[i] = Clone(dst, src, h)
	}
	return out
}
