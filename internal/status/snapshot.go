// internal/status/snapshot.go
package status

// Snapshot represents exactly what the writer is allowed to deliver.
// Codes are the String-stable enum values of the machine; the snapshot
// carries no logic and no memory of the past.
type Snapshot struct {
	State          uint16
	Fault          uint16
	SecondsInError uint32
	Color          uint16
	Flags          uint16
	LastExit       uint16
	TotalCount     uint32
	DurationMs     uint32
	Material       uint16
	Sessions       uint32
}
