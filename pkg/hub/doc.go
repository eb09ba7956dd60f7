// Package hub multicasts rx streams over WebSocket.
//
// A Hub is a registry of named topics. Each topic owns one hot
// rx.Stream of JSON payloads: code on the server publishes into it, and
// every connected WebSocket client observes it. Inbound client messages
// are pushed into the same stream, which makes a topic a network-backed
// event source — the remote counterpart of a button or control exposing
// its interactions as a stream.
//
// The hub is a consumer at the edge of the reactive core: it attaches
// observers and pushes values, nothing more. Terminal events propagate
// to clients as terminal frames and end their subscriptions.
package hub
