package mqtt

// DefaultTopicPrefix is used when Topics is built with an empty prefix.
const DefaultTopicPrefix = "scenesched"

// Topics builds the topic names under one prefix.
//
//	t := mqtt.NewTopics("studio-a")
//	t.Current() // "studio-a/scene/current"
type Topics struct {
	prefix string
}

// NewTopics returns the topic set rooted at prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the first topic level.
func (t Topics) Prefix() string { return t.prefix }

// Current is retained and carries the last applied switch.
func (t Topics) Current() string { return t.prefix + "/scene/current" }

// Events receives every switch and is not retained.
func (t Topics) Events() string { return t.prefix + "/scene/events" }

// Status is the retained online/offline topic; the broker publishes the
// last will here when the scheduler drops off.
func (t Topics) Status() string { return t.prefix + "/system/status" }

// Scenes matches every scene topic.
func (t Topics) Scenes() string { return t.prefix + "/scene/#" }
