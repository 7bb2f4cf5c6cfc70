package message

import (
	"strings"

	"calnotify/internal/event"
)

const (
	DefaultTitle        = "Запланированные мероприятия в твоем календаре"
	DefaultThumbnailURL = "https://api.slack.com/img/blocks/bkb_template_images/notifications.png"
	DefaultFallbackText = "this content will be ignored when a block exists"

	thumbnailAlt = "calendar thumbnail"

	labelStart     = "*Начало:* "
	labelEnd       = "*Окончание:* "
	labelOrganizer = "*Организатор:* "
	labelAttendees = "*Участники:*\n"
)

// Options customizes the fixed parts of the message.
type Options struct {
	Title        string
	ThumbnailURL string
}

// Builder accumulates event blocks behind a fixed header. The zero value
// is not usable; use NewBuilder.
type Builder struct {
	opts    Options
	payload Payload
	events  int
}

// NewBuilder returns a builder whose payload already holds the header
// section and its divider.
func NewBuilder(opts Options) *Builder {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.ThumbnailURL == "" {
		opts.ThumbnailURL = DefaultThumbnailURL
	}

	b := &Builder{opts: opts}
	b.payload = Payload{
		Text: DefaultFallbackText,
		Blocks: []Block{
			Section("*" + opts.Title + "*"),
			Divider(),
		},
	}
	return b
}

// Add appends one event section and a divider.
func (b *Builder) Add(f *event.Formatted) {
	b.payload.Blocks = append(b.payload.Blocks,
		SectionWithImage(EventText(f), b.opts.ThumbnailURL, thumbnailAlt),
		Divider(),
	)
	b.events++
}

// Len returns the number of events added so far.
func (b *Builder) Len() int { return b.events }

// Payload returns the message built so far.
func (b *Builder) Payload() *Payload {
	p := b.payload
	p.Blocks = append([]Block(nil), b.payload.Blocks...)
	return &p
}

// EventText renders the markdown body of an event section.
func EventText(f *event.Formatted) string {
	var title string
	if url := f.URL(); url != "" {
		title = "*<" + url + "|" + f.Summary() + ">*"
	} else {
		title = "*" + f.Summary() + "*"
	}

	lines := []string{
		title,
		labelStart + event.DisplayDate(f.Start()),
		labelEnd + event.DisplayDate(f.End()),
		labelOrganizer + f.Organizer(),
		labelAttendees + f.Attendees(),
	}
	return strings.Join(lines, "\n")
}
