package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/ifcingest/core"
)

// PropertyTransform rewrites one attribute of an entity while it is copied.
// index is the attribute position within e.
type PropertyTransform func(e *core.Entity, index int, v core.Value) (core.Value, error)

// IdentityTransform returns every value unchanged.
func IdentityTransform(_ *core.Entity, _ int, v core.Value) (core.Value, error) {
	return v, nil
}

// CopyOptions controls InsertCopy.
type CopyOptions struct {
	// IncludeInverses also copies the entities of the source model that
	// reference the copied root entity, e.g. the relationships it takes part in.
	IncludeInverses bool

	// Preserve reports attributes that bypass the transform and are copied
	// verbatim. Nil preserves nothing.
	Preserve func(e *core.Entity, index int) bool
}

// InsertCopy stages a copy of e, and of every entity of src it references
// transitively, into the transaction. Labels are kept; an entity whose label
// is already staged or committed in the destination is not copied again.
// Every attribute not preserved by opts passes through transform; a nil
// transform copies attributes unchanged.
func (t *Transaction) InsertCopy(ctx context.Context, src *Model, e *core.Entity, transform PropertyTransform, opts CopyOptions) error {
	if transform == nil {
		transform = IdentityTransform
	}

	roots := []*core.Entity{e}
	if opts.IncludeInverses {
		referrers, err := src.Referrers(ctx, e.Label)
		if err != nil {
			return err
		}
		for _, label := range referrers {
			inv, err := src.Entity(ctx, label)
			if err != nil {
				return err
			}
			roots = append(roots, inv)
		}
	}

	c := &copier{txn: t, src: src, transform: transform, preserve: opts.Preserve}
	for _, root := range roots {
		if err := c.copyClosure(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

type copier struct {
	txn       *Transaction
	src       *Model
	transform PropertyTransform
	preserve  func(*core.Entity, int) bool
}

// copyClosure copies root and everything reachable from it, depth first.
func (c *copier) copyClosure(ctx context.Context, root *core.Entity) error {
	stack := []*core.Entity{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		present, err := c.txn.Has(ctx, e.Label)
		if err != nil {
			return err
		}
		if present {
			continue
		}

		out, err := c.rewrite(e)
		if err != nil {
			return err
		}
		if err := c.txn.Insert(out); err != nil {
			return err
		}

		for _, ref := range out.References() {
			if present, err := c.txn.Has(ctx, ref); err != nil {
				return err
			} else if present {
				continue
			}
			next, err := c.src.Entity(ctx, ref)
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: #%d references #%d", ErrDanglingReference, e.Label, ref)
			}
			if err != nil {
				return err
			}
			stack = append(stack, next)
		}
	}
	return nil
}

func (c *copier) rewrite(e *core.Entity) (*core.Entity, error) {
	out := e.Clone()
	for i, attr := range out.Attributes {
		if c.preserve != nil && c.preserve(e, i) {
			continue
		}
		v, err := c.transform(e, i, attr)
		if err != nil {
			return nil, fmt.Errorf("transform #%d attribute %d: %w", e.Label, i, err)
		}
		out.Attributes[i] = v
	}
	return out, nil
}
