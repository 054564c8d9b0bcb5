package tools

import (
	"regexp"
	"strings"

	"github.com/arionchat/arion/internal/models"
)

// Renderer post-processes LLM output: it strips markdown emphasis the chat
// surface cannot display and splits the reply into text, image, and link
// segments for inline rendering.
type Renderer struct{}

// NewRenderer creates a response renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

var (
	boldRegex    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingRegex = regexp.MustCompile(`(?m)^#{1,2}\s+(.+)$`)

	// Matches, in order of the alternation: markdown images ![alt](url),
	// markdown links [text](url), and bare URLs.
	segmentRegex = regexp.MustCompile(`!\[([^\]]*)\]\((https?://[^\s)]+)\)|\[([^\]]+)\]\((https?://[^\s)]+)\)|(https?://[^\s<]+)`)

	// Link labels that mean "show this inline" rather than "link to this".
	imageLabelRegex = regexp.MustCompile(`(?i)^(thumbnail|full image|image|nft|view image|view|picture|photo|🖼️|view nft)$`)

	imageExtRegex = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg|bmp|ico)(\?.*)?$`)
)

// CleanMarkdown removes bold markers and heading prefixes, keeping the
// enclosed text.
func (r *Renderer) CleanMarkdown(text string) string {
	text = boldRegex.ReplaceAllString(text, "$1")
	text = headingRegex.ReplaceAllString(text, "$1")
	return text
}

// Segment splits a cleaned reply into renderable pieces. Markdown images
// always become image segments. Markdown links become images when their
// label expresses image intent, links otherwise. Bare URLs become images
// when they end in an image file extension.
func (r *Renderer) Segment(content string) []models.Segment {
	var segments []models.Segment
	last := 0

	for _, m := range segmentRegex.FindAllStringSubmatchIndex(content, -1) {
		if m[0] > last {
			segments = appendText(segments, content[last:m[0]])
		}

		switch {
		case m[4] >= 0: // ![alt](url)
			alt := content[m[2]:m[3]]
			if alt == "" {
				alt = "NFT Image"
			}
			segments = append(segments, models.Segment{
				Kind: models.SegmentImage,
				Text: alt,
				URL:  content[m[4]:m[5]],
			})
		case m[6] >= 0: // [text](url)
			label := content[m[6]:m[7]]
			url := content[m[8]:m[9]]
			kind := models.SegmentLink
			if imageLabelRegex.MatchString(strings.TrimSpace(label)) {
				kind = models.SegmentImage
			}
			segments = append(segments, models.Segment{Kind: kind, Text: label, URL: url})
		case m[10] >= 0: // bare URL
			url := content[m[10]:m[11]]
			kind := models.SegmentLink
			if imageExtRegex.MatchString(url) {
				kind = models.SegmentImage
			}
			segments = append(segments, models.Segment{Kind: kind, Text: url, URL: url})
		}

		last = m[1]
	}

	if last < len(content) {
		segments = appendText(segments, content[last:])
	}

	return segments
}

// Render cleans and segments a reply in one step.
func (r *Renderer) Render(content string) (string, []models.Segment) {
	cleaned := r.CleanMarkdown(content)
	return cleaned, r.Segment(cleaned)
}

func appendText(segments []models.Segment, text string) []models.Segment {
	if text == "" {
		return segments
	}
	return append(segments, models.Segment{Kind: models.SegmentText, Text: text})
}
