package tools

import (
	"testing"

	"github.com/arionchat/arion/internal/models"
)

func TestCleanMarkdown(t *testing.T) {
	r := NewRenderer()

	cases := map[string]string{
		"You hold **1.5 ETH** right now": "You hold 1.5 ETH right now",
		"## Portfolio\nYour tokens":      "Portfolio\nYour tokens",
		"# Summary\nAll good":            "Summary\nAll good",
		"no markdown here":               "no markdown here",
		"**a** and **b**":                "a and b",
	}

	for input, expected := range cases {
		if got := r.CleanMarkdown(input); got != expected {
			t.Errorf("CleanMarkdown(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestSegment_MarkdownImage(t *testing.T) {
	r := NewRenderer()

	segments := r.Segment("Here it is: ![Ape #1](https://cdn.example/ape.png) enjoy!")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Kind != models.SegmentText || segments[0].Text != "Here it is: " {
		t.Errorf("unexpected leading segment %+v", segments[0])
	}
	if segments[1].Kind != models.SegmentImage || segments[1].URL != "https://cdn.example/ape.png" {
		t.Errorf("expected image segment, got %+v", segments[1])
	}
	if segments[1].Text != "Ape #1" {
		t.Errorf("expected alt text, got %q", segments[1].Text)
	}
	if segments[2].Kind != models.SegmentText || segments[2].Text != " enjoy!" {
		t.Errorf("unexpected trailing segment %+v", segments[2])
	}
}

func TestSegment_ImageIntentLabels(t *testing.T) {
	r := NewRenderer()

	// [View Image](...) expresses image intent, [Etherscan](...) does not.
	segments := r.Segment("[View Image](https://cdn.example/nft.png) or [Etherscan](https://etherscan.io/tx/0xabc)")

	if segments[0].Kind != models.SegmentImage {
		t.Errorf("View Image label should render an image, got %+v", segments[0])
	}
	var link *models.Segment
	for i := range segments {
		if segments[i].Kind == models.SegmentLink {
			link = &segments[i]
		}
	}
	if link == nil {
		t.Fatal("expected a link segment for Etherscan")
	}
	if link.Text != "Etherscan" || link.URL != "https://etherscan.io/tx/0xabc" {
		t.Errorf("unexpected link segment %+v", link)
	}
}

func TestSegment_BareURLs(t *testing.T) {
	r := NewRenderer()

	segments := r.Segment("image https://cdn.example/pic.jpg?width=400 and page https://opensea.io/collection/apes")

	var image, link *models.Segment
	for i := range segments {
		switch segments[i].Kind {
		case models.SegmentImage:
			image = &segments[i]
		case models.SegmentLink:
			link = &segments[i]
		}
	}

	if image == nil || image.URL != "https://cdn.example/pic.jpg?width=400" {
		t.Errorf("expected a bare image URL segment, got %+v", image)
	}
	if link == nil || link.URL != "https://opensea.io/collection/apes" {
		t.Errorf("expected a bare link segment, got %+v", link)
	}
}

func TestSegment_EmptyAltGetsDefault(t *testing.T) {
	r := NewRenderer()

	segments := r.Segment("![](https://cdn.example/ape.png)")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Text != "NFT Image" {
		t.Errorf("empty alt should default to NFT Image, got %q", segments[0].Text)
	}
}

func TestSegment_PlainText(t *testing.T) {
	r := NewRenderer()

	segments := r.Segment("just words, nothing else")
	if len(segments) != 1 || segments[0].Kind != models.SegmentText {
		t.Fatalf("expected one text segment, got %+v", segments)
	}
}

func TestRender_CleansBeforeSegmenting(t *testing.T) {
	r := NewRenderer()

	cleaned, segments := r.Render("**Look:** ![NFT](https://cdn.example/x.png)")
	if cleaned != "Look: ![NFT](https://cdn.example/x.png)" {
		t.Errorf("unexpected cleaned text %q", cleaned)
	}
	if len(segments) != 2 || segments[1].Kind != models.SegmentImage {
		t.Errorf("unexpected segments %+v", segments)
	}
}
