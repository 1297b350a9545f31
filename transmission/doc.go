// Package transmission provides a client for the Transmission daemon's JSON RPC API.
//
// Every request carries a session id in the X-Transmission-Session-Id header.
// The daemon answers requests with a missing or stale id with HTTP 409 and the
// valid id in the same header; the Transport stores it and resends the request
// once. A second 409 is returned to the caller as a StatusError.
//
// # Usage
//
//	client, err := transmission.NewClient(transmission.Config{
//		URL:      "http://localhost:9091/transmission/rpc",
//		Username: "admin",
//		Password: "secret",
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	torrents, err := client.All(ctx)
//
//	// Absent torrents are not errors
//	torrent, err := client.Find(ctx, 42)
//	if err == nil && torrent == nil {
//		// not found
//	}
//
// # Error Handling
//
//   - TransportError: the request did not reach the daemon
//   - StatusError: non-2xx HTTP status (bad credentials, repeated 409)
//   - DecodeError: the body is not an RPC envelope
//   - ProtocolError: the envelope result is not "success"; Error() is the daemon's message
//
// A Client issues one request at a time per call and is safe to share; the
// session id is guarded internally.
package transmission
