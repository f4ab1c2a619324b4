package console

// Toggle labels.
const (
	LabelConnect    = "connect"
	LabelDisconnect = "disconnect"
)

// ControlState is the enablement of the console controls. Exactly one
// side is editable: the address field, or the message field and send
// button.
type ControlState struct {
	AddressEnabled bool
	MessageEnabled bool
	ToggleLabel    string
}

// Controls returns the control state for the given connection presence.
func Controls(connected bool) ControlState {
	if connected {
		return ControlState{
			AddressEnabled: false,
			MessageEnabled: true,
			ToggleLabel:    LabelDisconnect,
		}
	}

	return ControlState{
		AddressEnabled: true,
		MessageEnabled: false,
		ToggleLabel:    LabelConnect,
	}
}

// View renders the console. The console calls it while holding its
// lock, in event order, so implementations must not call back into the
// console synchronously.
type View interface {
	// SetControls applies the enablement of the controls.
	SetControls(ControlState)

	// AppendEntry displays a new log entry.
	AppendEntry(Entry)

	// ScrollToEnd scrolls the log display to its last entry.
	ScrollToEnd()
}

type nopView struct{}

func (nopView) SetControls(ControlState) {}
func (nopView) AppendEntry(Entry)        {}
func (nopView) ScrollToEnd()             {}
