// Package siteserver serves the console website and its WebSocket
// endpoint.
//
// The website root is served as static files, with index.html on "/" and
// no directory listings. Clients connected to /ws get every text frame
// they send echoed back, and receive the lines passed to
// Server.SendConsoleLog. Publisher produces such lines on a fixed
// interval for as long as the server runs.
//
//	srv := siteserver.New(siteserver.Config{
//		Address: "127.0.0.1",
//		Port:    80,
//		Root:    "website",
//	})
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop(context.Background())
//
//	pub := &siteserver.Publisher{Sink: srv}
//	if _, err := pub.Run(ctx); err != nil {
//		log.Print(err, srv.LastError())
//	}
//
// Every response carries X-Server and X-Server-Hostname headers and an
// X-Request-ID. Prometheus metrics are exposed on /metrics and a JSON
// health report on /healthz.
package siteserver
