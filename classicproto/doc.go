// Package classicproto is an encoder and decoder of the classic (pre-6.4)
// PostgreSQL frontend/backend protocol.
//
// The primary interfaces are Frontend and Backend. They correspond to a
// client and server respectively. Unlike later protocol versions, backend
// messages on this wire carry no length prefix after the tag byte, so
// messages are decoded incrementally from the stream and row decoding
// depends on the field count of the preceding row description.
package classicproto
