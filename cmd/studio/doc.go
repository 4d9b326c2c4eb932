/*
Studio is the command line entry point of the poster studio.

Usage:

	studio serve [--host HOST] [--port PORT] [--dev]
	studio repl
	studio version

serve runs the HTTP and WebSocket surface. repl drives the same session from
the terminal: lines starting with "/" are commands, anything else is sent to
the poster service as a prompt.
*/
package main
