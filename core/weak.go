package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// WeakFlag is the validity record shared between an owner and its references.
// A reference is valid while its generation matches the flag's and the owner
// has not been destroyed.
type WeakFlag struct {
	generation atomic.Uint64
	destroyed  atomic.Bool
}

// WeakReference is a non-owning handle to a WeakReferenceOwner.
// The zero value is never valid.
type WeakReference struct {
	flag       *WeakFlag
	generation uint64
}

// IsValid reports whether the owner is still alive and has not invalidated
// this reference. Check it on the goroutine that also destroys the owner.
func (r WeakReference) IsValid() bool {
	if r.flag == nil {
		return false
	}
	return !r.flag.destroyed.Load() && r.flag.generation.Load() == r.generation
}

// WeakReferenceOwner hands out weak references to the object embedding it.
// The zero value is ready to use.
type WeakReferenceOwner struct {
	mu   sync.Mutex
	flag *WeakFlag
}

func NewWeakReferenceOwner() *WeakReferenceOwner {
	return &WeakReferenceOwner{flag: &WeakFlag{}}
}

func (o *WeakReferenceOwner) ensureFlag() *WeakFlag {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.flag == nil {
		o.flag = &WeakFlag{}
	}
	return o.flag
}

// GetRef returns a reference valid until the next Invalidate or OwnerDestroyed.
func (o *WeakReferenceOwner) GetRef() WeakReference {
	f := o.ensureFlag()
	return WeakReference{flag: f, generation: f.generation.Load()}
}

// Invalidate makes every reference handed out so far invalid. References
// obtained afterwards are valid again.
func (o *WeakReferenceOwner) Invalidate() {
	o.ensureFlag().generation.Add(1)
}

// OwnerDestroyed permanently invalidates all references. Calling it again is a no-op.
func (o *WeakReferenceOwner) OwnerDestroyed() {
	o.ensureFlag().destroyed.Store(true)
}

// IsDestroyed reports whether OwnerDestroyed has been called.
func (o *WeakReferenceOwner) IsDestroyed() bool {
	return o.ensureFlag().destroyed.Load()
}

// BindWeak wraps task so that it does nothing when ref is no longer valid at
// the moment it runs.
func BindWeak(ref WeakReference, task Task) Task {
	return func(ctx context.Context) {
		if !ref.IsValid() {
			return
		}
		task(ctx)
	}
}

// SupportsWeakPtr can be embedded to give a type weak references to itself.
type SupportsWeakPtr struct {
	owner WeakReferenceOwner
}

func (s *SupportsWeakPtr) AsWeakRef() WeakReference { return s.owner.GetRef() }

func (s *SupportsWeakPtr) InvalidateWeakPtrs() { s.owner.Invalidate() }

// DestroyWeakPtrs is called by the embedding type's teardown.
func (s *SupportsWeakPtr) DestroyWeakPtrs() { s.owner.OwnerDestroyed() }
