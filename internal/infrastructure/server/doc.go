/*
Package server assembles the poster studio.

NewStudio builds one live session: the store loop, the poster service
client, the dispatcher, the preview poller and the style edit buffer.
NewServer puts the REST handlers, the /stream WebSocket and /metrics in
front of a Studio behind the usual middleware chain (recovery, request id,
tracing, access log, prometheus, CORS, per-IP rate limit) and gzip.

	srv, err := server.NewServer(cfg, version)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
*/
package server
