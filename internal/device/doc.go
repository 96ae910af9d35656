// Package device provides the registry of provisioned sensor nodes and
// their ownership history.
//
// The registry is intentionally small: the core only needs to know whether
// a device id is legitimate (settings records are never synthesized for
// unknown devices) and which ownership is currently active (measurements
// attach to the ownership, isolating data between successive owners).
package device
