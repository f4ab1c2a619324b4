// Package tui is the terminal front end of the console.
//
// The screen has a collapsible sidebar with the navigation links of the
// site, a header with the menu icon, the main area and a status line.
// Selecting a link loads its fragment through a fragment.Loader; the App
// is the loader's container and shows the fragment text. The fragment
// registered for DashboardScript replaces the text with the connection
// console: address field, connect/disconnect button, message field, send
// button and log.
//
// Key bindings:
//
//	Ctrl-B  open or close the sidebar
//	Ctrl-F  search: same as Ctrl-B, focusing the links when opened
//	Esc     focus the sidebar when open
//	Enter   connect from the address field, send from the message field
//	Ctrl-Q  quit
//
// Widget updates coming from the console and the loader goroutines are
// queued on the tview event loop while the application runs.
package tui
