// Package knx implements the discovery bridge for KNX installations
// behind a knx2mqtt gateway.
//
// The gateway translates bus telegrams to knx/a/b/c topics and /set
// commands back into telegrams, so state and control already flow
// without this bridge. Its job is registration: subscribing to the
// group-address wildcard, requesting the gateway's address dump, and
// merging dump entries and observed telegrams into the device table
// and the registration store. A group address is the device id —
// slashes included — matching how KNX installations are addressed.
package knx
