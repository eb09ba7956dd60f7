package hub

import "errors"

var (
	// ErrUnknownTopic is returned when a topic has not been registered.
	ErrUnknownTopic = errors.New("hub: unknown topic")

	// ErrTopicExists is returned when registering a topic name twice.
	ErrTopicExists = errors.New("hub: topic already registered")

	// ErrHubClosed is returned for operations on a closed hub.
	ErrHubClosed = errors.New("hub: closed")

	// ErrTopicTerminal is returned when publishing into a topic whose
	// stream has already terminated.
	ErrTopicTerminal = errors.New("hub: topic stream is terminal")
)
