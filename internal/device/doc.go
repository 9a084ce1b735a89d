// Package device defines the unified device model the bridging layer
// normalises every vendor ecosystem into.
//
// A Device is identified by its vendor plus a vendor-specific id — an
// entity id, a KNX group address, a zigbee2mqtt friendly name, or a
// composite bridge/light id. The pair is unique within a household.
//
// Two holders of devices live here:
//
//   - Table: the in-memory table a bridge keeps between poll cycles and
//     gateway announcements. Volatile, per-bridge, last-write-wins.
//   - Store: the registration upsert surface backed by SQLite. This is
//     what the surrounding application reads; bridges write to it on
//     every new or changed observation and never delete from it.
package device
