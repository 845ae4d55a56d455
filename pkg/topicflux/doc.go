// Package topicflux provides an embeddable bridge from a publish/subscribe
// bus to an InfluxDB compatible line-protocol endpoint.
//
// Every message payload is interpreted without a schema: JSON, MessagePack,
// CBOR or plain text ("21.5 °C", "on"). Each numeric value found becomes one
// line tagged with the topic segments and the key path of the value. Lines are
// batched and written when enough are pending or the oldest is old enough;
// failed writes are retried with exponential backoff while new records keep
// accumulating.
//
// # Basic Usage
//
//	cfg := topicflux.Config{
//	    InfluxURL: "http://localhost:8086",
//	    Database:  "telemetry",
//	}
//
//	b, err := topicflux.New(cfg, topicflux.WithMQTT(topicflux.MQTTConfig{
//	    Broker: "localhost",
//	    Topics: []string{"home/#"},
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := b.Stop(); err != nil {
//	    log.Printf("lines lost: %v", err)
//	}
//
// Stop performs one final write of everything pending. If it fails the error
// wraps [ErrDrainFailed].
//
// # Sources
//
// Records come from [WithMQTT], [WithNATS], [WithSubscriber] (any Watermill
// subscriber) or a custom [RecordSource] passed to [WithSource].
//
// # Lifecycle States
//
// A Bridge is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. A source that closes on its own moves the
// bridge to StateCrashed; [Bridge.Done] and [Bridge.Err] report it.
package topicflux
