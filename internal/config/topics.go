package config

const (
	// TopicSourcesChanged is the NSQ topic carrying source-list version
	// change events, published after a committed source mutation.
	TopicSourcesChanged = "sources.changed"
)
