// Package posterapi is the client for the remote poster service.
//
// The service owns poster content, LLM calls, deck generation and preview
// rendering. This package only speaks its HTTP contract:
//
//	POST /posters                                   create
//	GET  /posters/{id}                              fetch document
//	POST /posters/{id}/prompt                       prompt or direct update
//	POST /posters/{id}/generate_pptx                build deck
//	POST /posters/{id}/sections/{sid}/upload_image  multipart image_file
//	GET  /posters/{id}/preview                      202 JSON while rendering, PNG when done
//	GET  /posters/{id}/download_pptx                deck bytes
//
// Every call goes through a rate limiter and a circuit breaker. Reads are
// retried on transport errors and 5xx; writes are never replayed. Non-2xx
// responses become *APIError carrying the server's detail message.
package posterapi
