package tui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/vitalvas/wsconsole/console"
)

// DashboardScript is the script path of the console fragment.
const DashboardScript = "pages/js/dashboard.js"

// Element IDs read from the dashboard fragment.
const (
	dashboardAddressID = "url"
	dashboardTitleID   = "title"
)

// Dashboard is the console fragment: an address field with the toggle
// button, a message field with the send button, and the log. It
// implements console.View.
type Dashboard struct {
	do func(func())

	root    *tview.Flex
	address *tview.InputField
	toggle  *tview.Button
	message *tview.InputField
	send    *tview.Button
	log     *tview.TextView

	mu       sync.Mutex
	controls console.ControlState

	console *console.Console
}

func newDashboard(do func(func()), title, address string, opts console.Options) *Dashboard {
	d := &Dashboard{do: do}

	d.address = tview.NewInputField().
		SetLabel("Address ").
		SetText(address).
		SetFieldWidth(0)
	d.toggle = tview.NewButton(console.LabelConnect)
	d.message = tview.NewInputField().
		SetLabel("Message ").
		SetFieldWidth(0)
	d.send = tview.NewButton("send")
	d.log = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	d.log.SetBorder(true).SetTitle(" Console ")

	// Disabled fields reject edits; the console ignores a disabled send.
	d.address.SetAcceptanceFunc(func(string, rune) bool {
		return d.Controls().AddressEnabled
	})
	d.message.SetAcceptanceFunc(func(string, rune) bool {
		return d.Controls().MessageEnabled
	})

	d.toggle.SetSelectedFunc(d.toggleConnection)
	d.send.SetSelectedFunc(d.sendMessage)
	d.address.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			d.toggleConnection()
		}
	})
	d.message.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			d.sendMessage()
		}
	})

	d.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(d.address, 0, 1, true).
			AddItem(d.toggle, 14, 0, false), 1, 0, true).
		AddItem(nil, 1, 0, false).
		AddItem(tview.NewFlex().
			AddItem(d.message, 0, 1, false).
			AddItem(d.send, 14, 0, false), 1, 0, false).
		AddItem(d.log, 0, 1, false)
	d.root.SetBorder(true).SetTitle(" " + title + " ")

	opts.View = d
	d.console = console.New(opts)

	return d
}

// Console returns the controller driving the dashboard.
func (d *Dashboard) Console() *console.Console {
	return d.console
}

// Controls returns the control state last rendered.
func (d *Dashboard) Controls() console.ControlState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.controls
}

// Close closes the connection of the dashboard console.
func (d *Dashboard) Close() error {
	return d.console.Close()
}

func (d *Dashboard) SetControls(cs console.ControlState) {
	d.mu.Lock()
	d.controls = cs
	d.mu.Unlock()

	d.do(func() {
		d.toggle.SetLabel(cs.ToggleLabel)
		setFieldEnabled(d.address, cs.AddressEnabled)
		setFieldEnabled(d.message, cs.MessageEnabled)
		setButtonEnabled(d.send, cs.MessageEnabled)
	})
}

func (d *Dashboard) AppendEntry(e console.Entry) {
	line := entryColor(e.Kind) + tview.Escape(e.String()) + "[-]"

	d.do(func() {
		fmt.Fprintln(d.log, line)
	})
}

func (d *Dashboard) ScrollToEnd() {
	d.do(func() {
		d.log.ScrollToEnd()
	})
}

// The console is called from new goroutines since it renders through the
// event loop these handlers run on.
func (d *Dashboard) toggleConnection() {
	address := d.address.GetText()
	go d.console.Toggle(address)
}

func (d *Dashboard) sendMessage() {
	if !d.Controls().MessageEnabled {
		return
	}

	text := d.message.GetText()
	go d.console.Send(text)
}

func entryColor(kind console.EventKind) string {
	switch kind {
	case console.EventOpened:
		return "[green]"
	case console.EventError:
		return "[red]"
	case console.EventClosed:
		return "[yellow]"
	case console.EventSent:
		return "[aqua]"
	default:
		return "[white]"
	}
}

func setFieldEnabled(f *tview.InputField, enabled bool) {
	if enabled {
		f.SetFieldBackgroundColor(tview.Styles.ContrastBackgroundColor)
		f.SetFieldTextColor(tview.Styles.PrimaryTextColor)
		return
	}

	f.SetFieldBackgroundColor(tview.Styles.PrimitiveBackgroundColor)
	f.SetFieldTextColor(tcell.ColorGray)
}

func setButtonEnabled(b *tview.Button, enabled bool) {
	if enabled {
		b.SetLabelColor(tview.Styles.PrimaryTextColor)
		return
	}

	b.SetLabelColor(tcell.ColorGray)
}
