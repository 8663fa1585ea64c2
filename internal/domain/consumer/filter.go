package consumer

// Filter is the subscription predicate built from a consumer's topic set.
// It is a pure value: build it once per tick from the upserted row.
type Filter struct {
	wildcard bool
	topics   map[string]struct{}
}

// NewFilter builds a Filter from a topic list. An empty list or the presence
// of TopicWildcard matches everything.
func NewFilter(topics []string) Filter {
	if len(topics) == 0 {
		return Filter{wildcard: true}
	}

	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		if t == TopicWildcard {
			return Filter{wildcard: true}
		}
		set[t] = struct{}{}
	}

	return Filter{topics: set}
}

// Filter returns the subscription predicate for this consumer row.
func (c *Consumer) Filter() Filter {
	return NewFilter(c.Topics)
}

// Matches reports whether an event tagged with objectType is subscribed.
func (f Filter) Matches(objectType string) bool {
	if f.wildcard {
		return true
	}
	_, ok := f.topics[objectType]
	return ok
}
