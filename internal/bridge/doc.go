// Package bridge exposes the projector instance over MQTT.
//
// It is the host surface: inbound command messages are translated into
// instance actions, and the instance's outbound callbacks (connectivity
// status, variable values, feedback re-evaluation) are published as
// retained MQTT messages.
//
// # Topics
//
//	dhd800/command/{instance}   inbound actions        QoS 1
//	dhd800/state/{instance}     variable values        QoS 1, retained
//	dhd800/status/{instance}    connectivity status    QoS 1, retained
//	dhd800/feedback/{instance}  feedback events        QoS 1
//	dhd800/schema/{instance}    capability schema      QoS 1, retained
//	dhd800/health/{instance}    periodic health + LWT  QoS 1, retained
//
// The bridge holds no device state of its own; everything it publishes
// is derived from the instance's cache at publish time.
package bridge
