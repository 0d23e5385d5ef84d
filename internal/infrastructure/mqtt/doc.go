// Package mqtt provides MQTT client connectivity for the climate service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Publishing normalised system and zone state via StatePublisher
//
// # Architecture
//
// Gateways publish raw system bundles on the ingest topic. The service
// normalises them and republishes the result as retained state, so panels
// and automations see the last good snapshot on subscribe.
//
//	Gateway → graylogic/climate/ingest/system → climatecore → graylogic/climate/system/{id}/state
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//   - Ingest payloads are untrusted and are validated before anything is republished
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.IngestSystem(), 1,
//	    func(_ string, payload []byte) error {
//	        _, err := pipeline.Ingest(ctx, ingest.SourceMQTT, payload)
//	        return err
//	    })
//
//	publisher := mqtt.NewStatePublisher(client)
package mqtt
