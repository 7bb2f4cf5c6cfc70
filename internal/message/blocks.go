// Package message assembles the block-structured chat message posted for
// one account run.
package message

const (
	BlockSection = "section"
	BlockDivider = "divider"

	TextMarkdown = "mrkdwn"
	ElementImage = "image"
)

// Payload is the top-level webhook message.
type Payload struct {
	// Text is shown by clients that cannot render blocks.
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// Block is one visual unit: a text section, a divider, or a text section
// with an accessory image.
type Block struct {
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
	Accessory *Image `json:"accessory,omitempty"`
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Image struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	AltText  string `json:"alt_text"`
}

func Section(markdown string) Block {
	return Block{
		Type: BlockSection,
		Text: &Text{Type: TextMarkdown, Text: markdown},
	}
}

func SectionWithImage(markdown, imageURL, alt string) Block {
	b := Section(markdown)
	b.Accessory = &Image{Type: ElementImage, ImageURL: imageURL, AltText: alt}
	return b
}

func Divider() Block {
	return Block{Type: BlockDivider}
}
