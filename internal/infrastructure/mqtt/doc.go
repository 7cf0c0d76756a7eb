// Package mqtt provides MQTT client connectivity for the Inspire bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge publishes thermostat state and Home Assistant discovery
// documents to the broker and subscribes to command topics, so any MQTT
// consumer (typically Home Assistant) can observe and control the
// account without touching the vendor cloud directly.
//
//	Inspire cloud ↔ inspirebridge ↔ MQTT Broker ↔ Home Assistant
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all device commands
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish state
//	topic := mqtt.Topics{}.DeviceState("12345")
//	client.Publish(topic, []byte(`{"current_temperature":19.5}`), 1, true)
package mqtt
