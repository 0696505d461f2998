package blocks

import (
	"fmt"
	"path"
	"strings"
)

const fenceMarker = "```"

// Block is one annotated region of a document.
type Block struct {
	// Index is the block's position in document order.
	Index int
	// Body is the query text between the opener and the closing fence.
	Body string
	// Text is the exact span to replace: opener, body, and closing fence.
	Text string
}

// Extract returns every block opened by "```"+fence and closed by the next
// "```", in document order. The closing fence is not consumed, so it may
// double as the backticks of a following opener. An opener without a closing
// fence is ignored.
func Extract(text, fence string) []Block {
	opener := fenceMarker + fence
	var blocks []Block
	pos := 0
	for pos < len(text) {
		start := strings.Index(text[pos:], opener)
		if start < 0 {
			break
		}
		bodyStart := pos + start + len(opener)
		end := strings.Index(text[bodyStart:], fenceMarker)
		if end < 0 {
			break
		}
		bodyEnd := bodyStart + end
		body := text[bodyStart:bodyEnd]
		blocks = append(blocks, Block{
			Index: len(blocks),
			Body:  body,
			Text:  opener + body + fenceMarker,
		})
		pos = bodyEnd
	}
	return blocks
}

// ImageName returns the image filename for consumption index n.
func ImageName(prefix string, n int) string {
	return fmt.Sprintf("%s%d.jpg", prefix, n)
}

// Stanza returns the image reference emitted in place of a matched block.
// dir is slash separated and relative to the document's working directory.
func Stanza(dir, filename string) string {
	return fmt.Sprintf(`![](%s "")`, path.Join(dir, filename))
}
