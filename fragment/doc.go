// Package fragment replaces the main content area of a page with HTML
// fragments and runs fragment-specific setup after each swap.
//
// A Loader fetches the fragment markup through a Fetcher, parses it with
// golang.org/x/net/html and hands it to a Container. Setup code is not
// fetched and evaluated: each script path resolves to an Initializer
// registered ahead of time.
//
//	reg := fragment.NewRegistry()
//	reg.Register("pages/js/dashboard.js", func(ctx context.Context, c fragment.Content) error {
//	    // the container already shows c here
//	    return nil
//	})
//
//	loader, err := fragment.NewLoader(fragment.LoaderConfig{
//	    Fetcher:   fetcher,
//	    Container: container,
//	    Resolver:  reg,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = loader.Navigate(ctx, "pages/dashboard.html", "pages/js/dashboard.js")
//
// # Ordering
//
// The swap always completes before the initializer starts. Every
// navigation takes a token; a completion whose token is no longer the
// latest one issued is discarded with ErrSuperseded, so the last click
// wins regardless of the order the fetches finish in.
//
// # Failures
//
// When the markup cannot be fetched or the script path does not resolve,
// the failure is logged, the previous content stays in place and
// Navigate returns the error. Nothing is retried.
package fragment
