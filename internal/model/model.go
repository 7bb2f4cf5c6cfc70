package model

// RawEvent is one calendar object as delivered by a calendar source. The
// only thing the rest of the pipeline needs from it is its iCalendar text.
type RawEvent interface {
	Data() string
}

// TextEvent is a RawEvent backed by an already-serialized record.
type TextEvent struct {
	// Path is the server-side resource path, if the source has one.
	Path string
	Text string
}

func (e TextEvent) Data() string { return e.Text }

// Calendar is one calendar collection offered by a source, in the order
// the server listed it.
type Calendar struct {
	// Path is the collection URL path (CalDAV) or the feed URL.
	Path string
	// Name is the display name; may be empty.
	Name string
}

// Label returns the display name, falling back to the path.
func (c Calendar) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Path
}
