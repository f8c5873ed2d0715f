// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import "reflect"

// =============================================================================
// BUBBLE CACHE
// =============================================================================

// BubbleCache memoises rendered bubbles by message ID. A bubble is rendered
// again only when its props are not deep-equal to the previous render's.
type BubbleCache struct {
	entries map[string]cacheEntry
	renders int
}

type cacheEntry struct {
	props BubbleProps
	out   string
}

// NewBubbleCache creates an empty cache.
func NewBubbleCache() *BubbleCache {
	return &BubbleCache{entries: make(map[string]cacheEntry)}
}

// Render returns the cached output for id when props are unchanged, and
// otherwise calls render and caches the result.
func (c *BubbleCache) Render(id string, props BubbleProps, render func(BubbleProps) string) string {
	if e, ok := c.entries[id]; ok && reflect.DeepEqual(e.props, props) {
		return e.out
	}

	out := render(props)
	c.renders++

	// Keep a private copy: the live message keeps growing in place
	stored := props
	stored.Message = *props.Message.Clone()
	if props.Reasoning != nil {
		stored.Reasoning = make([]ReasoningDisclosure, len(props.Reasoning))
		copy(stored.Reasoning, props.Reasoning)
	}
	c.entries[id] = cacheEntry{props: stored, out: out}
	return out
}

// Renders returns how many times render was called.
func (c *BubbleCache) Renders() int {
	return c.renders
}

// Retain drops every entry whose ID is not in ids.
func (c *BubbleCache) Retain(ids map[string]bool) {
	for id := range c.entries {
		if !ids[id] {
			delete(c.entries, id)
		}
	}
}

// Reset drops every entry.
func (c *BubbleCache) Reset() {
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached bubbles.
func (c *BubbleCache) Len() int {
	return len(c.entries)
}
