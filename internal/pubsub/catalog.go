package pubsub

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var topicNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// TopicInfo describes a declared topic.
type TopicInfo struct {
	Name        string
	Description string
	// Payload is the Go type carried on the topic.
	Payload string
}

// Catalog records every topic declared with NewEvent.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]TopicInfo
}

// DefaultCatalog holds the topics declared by NewEvent.
var DefaultCatalog = NewCatalog()

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]TopicInfo)}
}

// Add records info. A name already present keeps its first declaration; a
// name with a different payload type is an error.
func (c *Catalog) Add(info TopicInfo) error {
	if !topicNamePattern.MatchString(info.Name) {
		return fmt.Errorf("invalid topic name %q", info.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[info.Name]; ok {
		if prev.Payload != info.Payload {
			return fmt.Errorf("topic %q already declared with payload %s", info.Name, prev.Payload)
		}
		return nil
	}
	c.entries[info.Name] = info
	return nil
}

// Get returns the topic named name.
func (c *Catalog) Get(name string) (TopicInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[name]
	return info, ok
}

// List returns every topic sorted by name.
func (c *Catalog) List() []TopicInfo {
	c.mu.RLock()
	out := make([]TopicInfo, 0, len(c.entries))
	for _, info := range c.entries {
		out = append(out, info)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
