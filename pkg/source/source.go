// Package source runs the aggregator subprocess (i3status or anything that
// speaks its JSON output protocol) and turns its line stream into named
// records the event-driven modules render from. Each output line is a JSON
// array of records; the bridge diffs consecutive arrays and wakes only the
// subscribers of records that actually changed.
package source

// Record is one entry of the aggregator's JSON status array. The fields
// mirror the i3bar protocol; all are strings so two records can be compared
// directly.
type Record struct {
	Name      string `json:"name"`
	Instance  string `json:"instance,omitempty"`
	FullText  string `json:"full_text"`
	ShortText string `json:"short_text,omitempty"`
	Color     string `json:"color,omitempty"`
	Markup    string `json:"markup,omitempty"`
}

// Snapshot is a point-in-time copy of the latest record per name. When the
// aggregator emits two records with the same name, the later one wins.
type Snapshot map[string]Record

// Get returns the record for name, if present.
func (s Snapshot) Get(name string) (Record, bool) {
	r, ok := s[name]
	return r, ok
}
