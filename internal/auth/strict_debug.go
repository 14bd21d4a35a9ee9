//go:build packetsdebug

package auth

// Consistency faults panic in debug builds.
const strict = true
