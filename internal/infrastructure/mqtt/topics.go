package mqtt

import "fmt"

// Topic prefixes for the Visionflow MQTT hierarchy.
//
// Device agent topics use the flat scheme:
//
//	visionflow/command/{device}/{channel}  engine -> agent requests
//	visionflow/reply/{device}/{channel}    agent -> engine responses
//
// Observer topics:
//
//	visionflow/notify/{kind}               task lifecycle notifications
//	visionflow/system/status               engine online/offline status
const (
	// TopicPrefix is the base for all Visionflow topics.
	TopicPrefix = "visionflow"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "visionflow/system"
)

// Topics provides builders for Visionflow MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Command returns the topic for requests to a device agent.
//
// Example: visionflow/command/device-001/screencap
func (Topics) Command(device, channel string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, device, channel)
}

// Reply returns the topic for responses from a device agent.
//
// Example: visionflow/reply/device-001/screencap
func (Topics) Reply(device, channel string) string {
	return fmt.Sprintf("%s/reply/%s/%s", TopicPrefix, device, channel)
}

// Notify returns the topic for a task lifecycle notification kind.
//
// Example: visionflow/notify/Task.Recognition.Succeeded
func (Topics) Notify(kind string) string {
	return fmt.Sprintf("%s/notify/%s", TopicPrefix, kind)
}

// AllNotifications returns the wildcard pattern matching every notification.
func (Topics) AllNotifications() string {
	return TopicPrefix + "/notify/#"
}

// SystemStatus returns the engine status topic (retained, LWT).
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
