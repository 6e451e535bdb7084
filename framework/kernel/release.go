package kernel

import (
	"io"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ReleasePolicy decides which built instances the kernel keeps track of so
// they can be closed later.
type ReleasePolicy interface {
	Track(instance any, model *ComponentModel)
	HasTrack(instance any) bool
	// Release closes and forgets one tracked instance.
	Release(instance any) error
	// Close closes every tracked instance, newest first.
	Close() error
}

// NoTrackingReleasePolicy tracks nothing; callers own what they resolve.
type NoTrackingReleasePolicy struct{}

func (NoTrackingReleasePolicy) Track(any, *ComponentModel) {}
func (NoTrackingReleasePolicy) HasTrack(any) bool          { return false }
func (NoTrackingReleasePolicy) Release(any) error          { return nil }
func (NoTrackingReleasePolicy) Close() error               { return nil }

// LifecycledComponentsReleasePolicy tracks kernel-built instances that
// implement io.Closer. It is the kernel's default.
type LifecycledComponentsReleasePolicy struct {
	mu      sync.Mutex
	tracked []any
}

func NewLifecycledComponentsReleasePolicy() *LifecycledComponentsReleasePolicy {
	return &LifecycledComponentsReleasePolicy{}
}

func (p *LifecycledComponentsReleasePolicy) Track(instance any, model *ComponentModel) {
	if model != nil && model.External {
		return
	}
	if _, ok := instance.(io.Closer); !ok || !reflect.TypeOf(instance).Comparable() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !lo.Contains(p.tracked, instance) {
		p.tracked = append(p.tracked, instance)
	}
}

func (p *LifecycledComponentsReleasePolicy) HasTrack(instance any) bool {
	if instance == nil || !reflect.TypeOf(instance).Comparable() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Contains(p.tracked, instance)
}

func (p *LifecycledComponentsReleasePolicy) Release(instance any) error {
	if !p.HasTrack(instance) {
		return nil
	}
	p.mu.Lock()
	p.tracked = lo.Without(p.tracked, instance)
	p.mu.Unlock()
	return instance.(io.Closer).Close()
}

func (p *LifecycledComponentsReleasePolicy) Close() error {
	p.mu.Lock()
	tracked := p.tracked
	p.tracked = nil
	p.mu.Unlock()

	var errs []error
	for i := len(tracked) - 1; i >= 0; i-- {
		if err := tracked[i].(io.Closer).Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "kernel: closing %d tracked component(s) failed", len(errs))
	}
	return nil
}
