// Package resolution sizes render targets relative to a base size. A Resolution derives an
// effective size from its base size, an optional preferred width or height and a scale, and
// notifies its listeners synchronously whenever the effective size changes. Resolutions can be
// bound to a parent so that the parent's effective size drives the child's base size, forming a
// tree that is re-evaluated from the root down.
package resolution

import (
	"errors"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/chewxy/math32"
)

// AutoSize marks a preferred dimension that is derived from the base size.
const AutoSize = -1

// ErrCycle is returned by Bind when the binding would make a resolution depend on itself.
var ErrCycle = errors.New("resolution: binding would create a cycle")

// Resizable is anything a Resolution can drive.
type Resizable interface {
	SetSize(width, height int)
}

type listener struct {
	id int
	fn func(common.Size)
}

// resolution is the implementation of the Resolution interface.
type resolution struct {
	mu *sync.Mutex

	name            string
	baseWidth       int
	baseHeight      int
	preferredWidth  int
	preferredHeight int
	scale           float32
	effective       common.Size

	parent *resolution
	unbind func()

	listeners []listener
	nextID    int
}

// Resolution defines a reactive size. Every setter recomputes the effective size immediately
// and, if it changed, calls the change listeners before returning.
type Resolution interface {
	// Name retrieves the debug name.
	Name() string

	// BaseSize retrieves the size being fit, usually the drawing buffer size.
	//
	// Returns:
	//   - common.Size: the base size
	BaseSize() common.Size

	// SetBaseSize sets the size being fit.
	//
	// Parameters:
	//   - width: the base width
	//   - height: the base height
	SetBaseSize(width, height int)

	// PreferredWidth retrieves the explicit width, or AutoSize.
	PreferredWidth() int

	// SetPreferredWidth sets an explicit width. AutoSize, or any negative value, derives the width.
	SetPreferredWidth(width int)

	// PreferredHeight retrieves the explicit height, or AutoSize.
	PreferredHeight() int

	// SetPreferredHeight sets an explicit height. AutoSize, or any negative value, derives the height.
	SetPreferredHeight(height int)

	// SetPreferredSize sets both explicit dimensions with a single recomputation.
	SetPreferredSize(width, height int)

	// Scale retrieves the factor applied to the base size when no dimension is explicit.
	Scale() float32

	// SetScale sets the scale factor.
	SetScale(scale float32)

	// Width retrieves the effective width.
	Width() int

	// Height retrieves the effective height.
	Height() int

	// Size retrieves the effective size.
	//
	// Returns:
	//   - common.Size: the effective size, never smaller than 1x1
	Size() common.Size

	// OnChange registers fn to be called with the new effective size after every change.
	//
	// Parameters:
	//   - fn: the listener
	//
	// Returns:
	//   - func(): removes the listener
	OnChange(fn func(common.Size)) func()

	// Drive resizes the targets to the effective size now and after every change.
	//
	// Parameters:
	//   - targets: the resources to resize
	//
	// Returns:
	//   - func(): stops driving the targets
	Drive(targets ...Resizable) func()

	// Bind makes the effective size of parent the base size of this resolution.
	// Binding to nil unbinds.
	//
	// Parameters:
	//   - parent: the driving resolution
	//
	// Returns:
	//   - error: ErrCycle if parent already depends on this resolution
	Bind(parent Resolution) error

	// Parent retrieves the bound parent, or nil.
	Parent() Resolution
}

var _ Resolution = &resolution{}

// NewResolution creates a resolution with automatic width and height and a scale of 1.
//
// Parameters:
//   - name: the debug name
//   - options: ResolutionBuilderOption functions to configure the resolution
//
// Returns:
//   - Resolution: the resolution
func NewResolution(name string, options ...ResolutionBuilderOption) Resolution {
	r := &resolution{
		mu:              &sync.Mutex{},
		name:            name,
		baseWidth:       1,
		baseHeight:      1,
		preferredWidth:  AutoSize,
		preferredHeight: AutoSize,
		scale:           1,
	}
	for _, opt := range options {
		opt(r)
	}
	r.effective = r.compute()
	return r
}

func (r *resolution) Name() string {
	return r.name
}

func (r *resolution) BaseSize() common.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return common.Size{Width: r.baseWidth, Height: r.baseHeight}
}

func (r *resolution) SetBaseSize(width, height int) {
	r.update(func() {
		r.baseWidth, r.baseHeight = max(width, 1), max(height, 1)
	})
}

func (r *resolution) PreferredWidth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preferredWidth
}

func (r *resolution) SetPreferredWidth(width int) {
	r.update(func() { r.preferredWidth = normalize(width) })
}

func (r *resolution) PreferredHeight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preferredHeight
}

func (r *resolution) SetPreferredHeight(height int) {
	r.update(func() { r.preferredHeight = normalize(height) })
}

func (r *resolution) SetPreferredSize(width, height int) {
	r.update(func() {
		r.preferredWidth = normalize(width)
		r.preferredHeight = normalize(height)
	})
}

func (r *resolution) Scale() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scale
}

func (r *resolution) SetScale(scale float32) {
	r.update(func() {
		if scale > 0 {
			r.scale = scale
		}
	})
}

func (r *resolution) Width() int {
	return r.Size().Width
}

func (r *resolution) Height() int {
	return r.Size().Height
}

func (r *resolution) Size() common.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effective
}

func (r *resolution) OnChange(fn func(common.Size)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.listeners = slices.DeleteFunc(r.listeners, func(l listener) bool { return l.id == id })
	}
}

func (r *resolution) Drive(targets ...Resizable) func() {
	size := r.Size()
	for _, t := range targets {
		t.SetSize(size.Width, size.Height)
	}
	return r.OnChange(func(s common.Size) {
		for _, t := range targets {
			t.SetSize(s.Width, s.Height)
		}
	})
}

func (r *resolution) Bind(parent Resolution) error {
	var p *resolution
	if parent != nil {
		var ok bool
		if p, ok = parent.(*resolution); !ok {
			return errors.New("resolution: unsupported parent implementation")
		}
		for n := p; n != nil; n = n.parentNode() {
			if n == r {
				return ErrCycle
			}
		}
	}

	r.mu.Lock()
	unbind := r.unbind
	r.parent, r.unbind = p, nil
	r.mu.Unlock()
	if unbind != nil {
		unbind()
	}
	if p == nil {
		return nil
	}

	remove := p.OnChange(func(s common.Size) { r.SetBaseSize(s.Width, s.Height) })
	r.mu.Lock()
	r.unbind = remove
	r.mu.Unlock()
	size := p.Size()
	r.SetBaseSize(size.Width, size.Height)
	return nil
}

func (r *resolution) Parent() Resolution {
	if p := r.parentNode(); p != nil {
		return p
	}
	return nil
}

func (r *resolution) parentNode() *resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parent
}

// update applies mutate, recomputes the effective size and notifies listeners outside the lock.
// Children are bound through listeners, so a change propagates down the tree before update returns.
func (r *resolution) update(mutate func()) {
	r.mu.Lock()
	mutate()
	next := r.compute()
	if next == r.effective {
		r.mu.Unlock()
		return
	}
	r.effective = next
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l.fn(next)
	}
}

// compute derives the effective size. Requires mu.
func (r *resolution) compute() common.Size {
	base := common.Size{Width: r.baseWidth, Height: r.baseHeight}
	aspect := base.Aspect()
	var w, h int
	switch {
	case r.preferredWidth != AutoSize && r.preferredHeight != AutoSize:
		w, h = r.preferredWidth, r.preferredHeight
	case r.preferredWidth != AutoSize:
		w = r.preferredWidth
		h = int(math32.Round(float32(w) / aspect))
	case r.preferredHeight != AutoSize:
		h = r.preferredHeight
		w = int(math32.Round(float32(h) * aspect))
	default:
		w = int(math32.Round(float32(r.baseWidth) * r.scale))
		h = int(math32.Round(float32(r.baseHeight) * r.scale))
	}
	return common.Size{Width: max(w, 1), Height: max(h, 1)}
}

func normalize(v int) int {
	if v < 0 {
		return AutoSize
	}
	return v
}
