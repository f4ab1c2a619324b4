package tui

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/vitalvas/wsconsole/console"
	"github.com/vitalvas/wsconsole/fragment"
	"github.com/vitalvas/wsconsole/metrics"
)

// Page names of the main area.
const (
	pageContent   = "content"
	pageDashboard = "dashboard"
)

const sidebarWidth = 30

// ErrNoFetcher is returned by New without a fetcher.
var ErrNoFetcher = errors.New("tui: fetcher must not be nil")

// Options configures an App.
type Options struct {
	// Title is shown above the sidebar.
	Title string

	// Links populate the sidebar.
	Links []fragment.Link

	// Fetcher retrieves the fragments. Required.
	Fetcher fragment.Fetcher

	// DefaultPage is loaded on Run. Defaults to fragment.DefaultPage.
	DefaultPage string

	// Address prefills the dashboard when its fragment has no url value.
	Address string

	// AutoScroll and ErrorPolicy configure every dashboard console.
	AutoScroll  bool
	ErrorPolicy console.ErrorPolicy

	// Dialer opens console connections. Nil uses a WebSocket dialer.
	Dialer console.Dialer

	Logger         *slog.Logger
	ConsoleMetrics *metrics.Console
	LoaderMetrics  *metrics.Loader

	// Screen overrides the terminal, mostly for tests.
	Screen tcell.Screen
}

// App is the terminal front end. It is the container of the fragment
// loader and the view of the side panel.
type App struct {
	opts   Options
	logger *slog.Logger

	app     *tview.Application
	layout  *tview.Flex
	header  *tview.TextView
	sidebar *tview.List
	pages   *tview.Pages
	content *tview.TextView
	status  *tview.TextView

	panel    *fragment.Panel
	registry *fragment.Registry
	loader   *fragment.Loader

	running  atomic.Bool
	directMu sync.Mutex

	mu        sync.Mutex
	ctx       context.Context
	shown     fragment.Content
	dashboard *Dashboard
	panelOpen bool
}

// New builds the widgets, the side panel and the fragment loader.
func New(opts Options) (*App, error) {
	if opts.Fetcher == nil {
		return nil, ErrNoFetcher
	}

	if opts.Title == "" {
		opts.Title = "WebSocket Console"
	}

	a := &App{
		opts:   opts,
		logger: opts.Logger,
		app:    tview.NewApplication(),
		ctx:    context.Background(),
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	a.header = tview.NewTextView().SetDynamicColors(true)
	a.sidebar = tview.NewList().ShowSecondaryText(false)
	a.sidebar.SetBorder(true).SetTitle(" " + opts.Title + " ")
	for _, link := range opts.Links {
		a.sidebar.AddItem(link.Title, link.File, 0, func() {
			a.open(link)
		})
	}

	a.content = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(true)
	a.content.SetBorder(true)

	a.pages = tview.NewPages().AddPage(pageContent, a.content, true, true)
	a.status = tview.NewTextView().SetDynamicColors(true)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.layout = tview.NewFlex().
		AddItem(a.sidebar, 0, 0, false).
		AddItem(main, 0, 1, true)

	a.app.SetRoot(a.layout, true)
	a.app.SetInputCapture(a.handleKey)
	if opts.Screen != nil {
		a.app.SetScreen(opts.Screen)
	}

	a.panel = fragment.NewPanel(a)

	a.registry = fragment.NewRegistry()
	a.registry.Register(DashboardScript, a.initDashboard)

	loader, err := fragment.NewLoader(fragment.LoaderConfig{
		Fetcher:     opts.Fetcher,
		Container:   a,
		Resolver:    a.registry,
		DefaultPage: opts.DefaultPage,
		Logger:      a.logger,
		Metrics:     opts.LoaderMetrics,
	})
	if err != nil {
		return nil, err
	}
	a.loader = loader

	return a, nil
}

// Run loads the default page and runs the terminal UI until ctx is done
// or the user quits. The dashboard connection is closed on return.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	a.running.Store(true)

	go func() {
		<-ctx.Done()
		a.app.QueueUpdate(a.app.Stop)
	}()

	go a.start(ctx)

	err := a.app.Run()
	a.running.Store(false)
	cancel()

	if d := a.takeDashboard(); d != nil {
		d.Close()
	}

	return err
}

// Stop ends Run.
func (a *App) Stop() {
	a.app.Stop()
}

// Navigate loads a fragment and its initializer. It is what selecting a
// sidebar link does.
func (a *App) Navigate(ctx context.Context, htmlPath, scriptPath string) error {
	a.setStatus("[yellow]loading[-] " + tview.Escape(htmlPath))

	err := a.loader.Navigate(ctx, htmlPath, scriptPath)
	switch {
	case err == nil:
		a.setStatus(tview.Escape(htmlPath))
	case errors.Is(err, fragment.ErrSuperseded):
	default:
		a.setStatus("[red]error[-] " + tview.Escape(err.Error()))
	}

	return err
}

// Dashboard returns the dashboard currently shown, or nil.
func (a *App) Dashboard() *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.dashboard
}

// Panel returns the side panel.
func (a *App) Panel() *fragment.Panel {
	return a.panel
}

// Replace shows c in the content page and drops the previous dashboard.
func (a *App) Replace(c fragment.Content) {
	a.mu.Lock()
	d := a.dashboard
	a.dashboard = nil
	a.shown = c
	a.mu.Unlock()

	if d != nil {
		go d.Close()
	}

	text := c.Text()
	title := fragmentTitle(c)

	a.do(func() {
		a.content.SetText(text)
		a.content.SetTitle(" " + title + " ")
		a.content.ScrollToBeginning()
		a.pages.RemovePage(pageDashboard)
		a.pages.SwitchToPage(pageContent)
	})
}

// SetPanel shows or hides the sidebar.
func (a *App) SetPanel(open bool, icon string) {
	a.mu.Lock()
	a.panelOpen = open
	a.mu.Unlock()

	width := 0
	if open {
		width = sidebarWidth
	}

	a.do(func() {
		a.layout.ResizeItem(a.sidebar, width, 0)
		a.header.SetText(iconGlyph(icon) + " [::b]" + tview.Escape(a.opts.Title) + "[::-]  [gray]Ctrl-B menu, Ctrl-F search, Ctrl-Q quit[-]")
		if open {
			a.app.SetFocus(a.sidebar)
		}
	})
}

func (a *App) initDashboard(_ context.Context, c fragment.Content) error {
	address := fragment.AttrOf(c.FindByID(dashboardAddressID), "value")
	if address == "" {
		address = a.opts.Address
	}

	d := newDashboard(a.do, fragmentTitle(c), address, console.Options{
		Dialer:      a.opts.Dialer,
		ErrorPolicy: a.opts.ErrorPolicy,
		AutoScroll:  a.opts.AutoScroll,
		Logger:      a.logger.With("component", "console"),
		Metrics:     a.opts.ConsoleMetrics,
	})

	// A newer fragment may have been swapped in since c.
	a.mu.Lock()
	if !sameContent(a.shown, c) {
		a.mu.Unlock()
		d.Close()
		return fragment.ErrSuperseded
	}
	prev := a.dashboard
	a.dashboard = d
	a.mu.Unlock()

	if prev != nil {
		go prev.Close()
	}

	a.do(func() {
		if !a.isDashboard(d) {
			return
		}
		a.pages.AddAndSwitchToPage(pageDashboard, d.root, true)
		a.app.SetFocus(d.address)
	})

	return nil
}

func (a *App) isDashboard(d *Dashboard) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.dashboard == d
}

// sameContent reports whether x and y come from the same swap.
func sameContent(x, y fragment.Content) bool {
	if x.Path != y.Path || len(x.Nodes) != len(y.Nodes) {
		return false
	}
	if len(x.Nodes) > 0 {
		return x.Nodes[0] == y.Nodes[0]
	}

	return x.Markup == y.Markup
}

func (a *App) start(ctx context.Context) {
	if err := a.loader.Start(ctx); err != nil && !errors.Is(err, fragment.ErrSuperseded) {
		a.setStatus("[red]error[-] " + tview.Escape(err.Error()))
	}
}

func (a *App) open(link fragment.Link) {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()

	go a.Navigate(ctx, link.File, link.Script)
}

func (a *App) takeDashboard() *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := a.dashboard
	a.dashboard = nil
	return d
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyCtrlB, tcell.KeyCtrlF:
		go a.panel.Toggle()
		return nil
	case tcell.KeyCtrlQ:
		a.app.Stop()
		return nil
	case tcell.KeyEsc:
		a.mu.Lock()
		open := a.panelOpen
		a.mu.Unlock()
		if open {
			a.app.SetFocus(a.sidebar)
			return nil
		}
	}

	return ev
}

func (a *App) setStatus(text string) {
	a.do(func() {
		a.status.SetText(text)
	})
}

// do applies a widget update. While the application runs it goes through
// the event loop, before that it is applied directly.
func (a *App) do(fn func()) {
	if a.running.Load() {
		a.app.QueueUpdateDraw(fn)
		return
	}

	a.directMu.Lock()
	defer a.directMu.Unlock()

	fn()
}

func fragmentTitle(c fragment.Content) string {
	if n := c.FindByID(dashboardTitleID); n != nil {
		if title := fragment.TextOf(n); title != "" {
			return title
		}
	}

	return c.Path
}

func iconGlyph(icon string) string {
	if icon == fragment.IconOpen {
		return "[::b]<[::-]"
	}
	return "[::b]=[::-]"
}
