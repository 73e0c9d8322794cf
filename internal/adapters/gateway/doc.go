// Package gateway implements core.SessionClient over a WebSocket connection to a
// messaging gateway. Requests and responses are JSON envelopes correlated by id;
// the gateway may also send "ping" envelopes, answered with "pong".
package gateway
