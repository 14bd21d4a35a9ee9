//go:build !packetsdebug

package auth

const strict = false
