package fragment

import "sync"

// Sidebar toggle icons.
const (
	IconClosed = "bx-menu"
	IconOpen   = "bx-menu-alt-right"
)

// PanelView renders the side panel.
type PanelView interface {
	SetPanel(open bool, icon string)
}

// PanelViewFunc adapts a function to the PanelView interface.
type PanelViewFunc func(open bool, icon string)

// SetPanel calls f(open, icon).
func (f PanelViewFunc) SetPanel(open bool, icon string) {
	f(open, icon)
}

// Panel is the collapsible side panel. It starts closed.
type Panel struct {
	mu   sync.Mutex
	open bool
	view PanelView
}

// NewPanel returns a closed panel and renders it. A nil view is allowed.
func NewPanel(view PanelView) *Panel {
	p := &Panel{view: view}

	p.mu.Lock()
	p.render()
	p.mu.Unlock()

	return p
}

// Toggle flips the panel and returns the new state.
func (p *Panel) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.open = !p.open
	p.render()

	return p.open
}

// Open reports whether the panel is open.
func (p *Panel) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.open
}

// Icon returns the icon matching the current state.
func (p *Panel) Icon() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return iconFor(p.open)
}

func (p *Panel) render() {
	if p.view != nil {
		p.view.SetPanel(p.open, iconFor(p.open))
	}
}

func iconFor(open bool) string {
	if open {
		return IconOpen
	}
	return IconClosed
}
