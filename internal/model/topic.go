// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// Topic is a knowledge collection the backend searches when answering.
// Its value is sent verbatim in the "collections" field of a chat request.
type Topic string

const (
	TopicBestPractices Topic = "best_practices"
	TopicPolicies      Topic = "policies"
	TopicData          Topic = "data"
)

// AllTopics lists the collections offered in the input bar, in display order.
var AllTopics = []Topic{TopicBestPractices, TopicPolicies, TopicData}

// Label returns the input bar label for t.
func (t Topic) Label() string {
	switch t {
	case TopicBestPractices:
		return "Best Practices"
	case TopicPolicies:
		return "Policies"
	case TopicData:
		return "Data Profile"
	default:
		return string(t)
	}
}

// IsKnown reports whether t is one of AllTopics.
func (t Topic) IsKnown() bool {
	for _, k := range AllTopics {
		if k == t {
			return true
		}
	}
	return false
}

// TopicSet is the user's current selection of collections.
type TopicSet map[Topic]bool

// NewTopicSet creates a selection containing topics.
func NewTopicSet(topics ...Topic) TopicSet {
	s := make(TopicSet, len(topics))
	for _, t := range topics {
		s[t] = true
	}
	return s
}

// Toggle flips t in or out of the selection.
func (s TopicSet) Toggle(t Topic) {
	if s[t] {
		delete(s, t)
		return
	}
	s[t] = true
}

// Has reports whether t is selected.
func (s TopicSet) Has(t Topic) bool {
	return s[t]
}

// Collections returns the selection as request values, known topics first
// in display order, then any others sorted.
func (s TopicSet) Collections() []string {
	out := make([]string, 0, len(s))
	for _, t := range AllTopics {
		if s[t] {
			out = append(out, string(t))
		}
	}
	var extra []string
	for t, on := range s {
		if on && !t.IsKnown() {
			extra = append(extra, string(t))
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
