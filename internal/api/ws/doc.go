// Package ws provides the live WebSocket stream for the feed.
//
// A single Hub fans domain events out to every connected client and each
// connection can drive app generation and relay sandbox messages.
//
// Message Types (Client → Server):
//   - ping: keep-alive
//   - subscribe: limit events to the given appIds (empty means all)
//   - generate: run one create-page turn with prompt and history
//   - sandbox_event: relay a bridge message in payload
//
// Message Types (Server → Client):
//   - connected: sent once with the connection id
//   - pong, subscribed
//   - event: a domain event (likes, comments, new apps, follows)
//   - generation_started, generation_complete
//   - sandbox_state: the session after a relayed message
//   - error
//
// Example Usage:
//
//	hub := ws.NewHub(metrics, logger)
//	feed.SetPublisher(hub)
//	handler := ws.NewHandler(hub, generatorService, registry, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
