// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the bridge core and the outside world. They
// define what the core needs from external systems without specifying how
// those needs are fulfilled.
//
// # Port Interfaces
//
//   - [RecordSource]: Delivers timestamped bus messages (MQTT, NATS, Watermill)
//   - [LineWriter]: Writes a batch of encoded lines to the ingestion endpoint
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (paho MQTT, nats.go, InfluxDB over HTTP, zerolog, etc.).
package ports
