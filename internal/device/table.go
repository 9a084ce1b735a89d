package device

import (
	"sync"
	"time"
)

// Table is the in-memory device table a bridge maintains between polls
// and announcements. It is keyed by the vendor-native device id.
//
// Poll cycles and message handlers write to the table concurrently;
// updates are last-write-wins, matching the source semantics. The mutex
// exists because Go handlers genuinely run in parallel — it serialises
// map access, it does not impose ordering between writers.
type Table struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewTable creates an empty device table.
func NewTable() *Table {
	return &Table{devices: make(map[string]Device)}
}

// Get returns the device with the given id.
func (t *Table) Get(id string) (Device, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.devices[id]
	return d, ok
}

// Upsert inserts or replaces a device, marking it online and stamping
// LastSeen. It returns the stored device and whether it was newly created.
func (t *Table) Upsert(d Device) (Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, existed := t.devices[d.ID]
	stored := d.Seen(time.Now().UTC())

	// Preserve a previously discovered name when an update carries none.
	if stored.Name == "" && existed {
		stored.Name = t.devices[d.ID].Name
	}

	t.devices[d.ID] = stored
	return stored, !existed
}

// Touch marks an existing device online and stamps LastSeen without
// changing anything else. Unknown ids are ignored.
func (t *Table) Touch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.devices[id]
	if !ok {
		return
	}
	t.devices[id] = d.Seen(time.Now().UTC())
}

// MarkOffline flips a device to offline. Unknown ids are ignored.
// LastSeen keeps its previous value: it records the last successful
// observation, not the moment of disappearance.
func (t *Table) MarkOffline(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.devices[id]
	if !ok {
		return
	}
	d.Status = StatusOffline
	t.devices[id] = d
}

// MarkMissingOffline flips every device whose id is absent from seen to
// offline and returns the ids it changed. Bridges call this at the end
// of a poll cycle with the set of ids the vendor reported.
func (t *Table) MarkMissingOffline(seen map[string]bool) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed []string
	for id, d := range t.devices {
		if seen[id] || d.Status == StatusOffline {
			continue
		}
		d.Status = StatusOffline
		t.devices[id] = d
		changed = append(changed, id)
	}
	return changed
}

// List returns a snapshot of all devices in the table.
func (t *Table) List() []Device {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Device, 0, len(t.devices))
	for _, d := range t.devices {
		out = append(out, d)
	}
	return out
}

// Len returns the number of devices in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.devices)
}
