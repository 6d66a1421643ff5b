// Package mqtt provides the MQTT transport for Visionflow Core.
//
// It wraps paho.mqtt.golang with connection lifecycle management,
// automatic re-subscription after reconnects, Last Will and Testament
// for offline detection, and panic-safe message handlers.
//
// Two subsystems ride on this transport:
//
//   - The device controller publishes screencap and input commands to
//     visionflow/command/{device}/... and receives replies on
//     visionflow/reply/{device}/...
//   - The notification bridge publishes task lifecycle events to
//     visionflow/notify/{kind} for external observers.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Command("device-001", "input")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
