package statusboard

import "fmt"

// Redis key pattern helpers
//
// All keys and channels are namespaced by instance name so several
// companions can share one Redis server.
//
// Key pattern: companion:{instance_name}:{entity}
// Channel pattern: companion:{instance_name}:{event_type}_events

// HeartbeatsKey returns the hash of worker name to last heartbeat (RFC3339Nano).
func HeartbeatsKey(instanceName string) string {
	return fmt.Sprintf("companion:%s:heartbeats", instanceName)
}

// TrafficKey returns the key holding the tracked contacts as JSON.
func TrafficKey(instanceName string) string {
	return fmt.Sprintf("companion:%s:traffic", instanceName)
}

// AlarmsKey returns the key holding the alarm targets as JSON.
func AlarmsKey(instanceName string) string {
	return fmt.Sprintf("companion:%s:alarms", instanceName)
}

// PublishedKey returns the key holding the snapshot's publish time (RFC3339Nano).
func PublishedKey(instanceName string) string {
	return fmt.Sprintf("companion:%s:published_at", instanceName)
}

// SnapshotEventsChannel returns the Pub/Sub channel snapshots are announced on.
func SnapshotEventsChannel(instanceName string) string {
	return fmt.Sprintf("companion:%s:snapshot_events", instanceName)
}
