// Package intent decides which capability a chat request targets.
package intent

import (
	"strings"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// Kind is the capability a request is routed to.
type Kind int

const (
	TextChat Kind = iota
	ImageGenerate
	ImageEdit
)

func (k Kind) String() string {
	switch k {
	case ImageGenerate:
		return "image_generate"
	case ImageEdit:
		return "image_edit"
	default:
		return "text_chat"
	}
}

// Matching is plain substring search on the lower-cased prompt, so "drawing board"
// matches "draw". That is accepted.
var (
	editKeywords = []string{
		"edit", "modify", "change", "update", "transform", "adjust", "alter",
		"improve", "enhance", "fix", "remove", "add", "replace",
		"make it", "turn into", "convert to",
	}

	generateKeywords = []string{
		"generate image", "create image", "draw", "make image", "picture of",
		"illustration of", "generate picture", "create picture", "show me image",
		"show image", "visualize", "paint", "sketch", "artwork of", "photo of",
		"imagen", "image of", "make a picture", "generate a picture", "create a photo",
	}
)

// Classify returns the intent of prompt. Edit intent is only considered when an
// image is attached, and it takes priority over generation intent.
func Classify(prompt string, hasImage bool) Kind {
	p := strings.ToLower(prompt)
	if hasImage && containsAny(p, editKeywords) {
		return ImageEdit
	}
	if containsAny(p, generateKeywords) {
		return ImageGenerate
	}
	return TextChat
}

// Result is a classification together with the attachment an edit applies to.
type Result struct {
	Kind Kind
	// Source is the first image attachment; set only when Kind is ImageEdit.
	Source *models.File
}

// Resolve classifies a request carrying attachments.
func Resolve(prompt string, files []models.File) Result {
	src := FirstImage(files)
	kind := Classify(prompt, src != nil)
	if kind != ImageEdit {
		return Result{Kind: kind}
	}
	return Result{Kind: kind, Source: src}
}

// FirstImage returns the first attachment whose MIME type starts with "image/".
func FirstImage(files []models.File) *models.File {
	for i := range files {
		if models.IsImage(files[i]) {
			return &files[i]
		}
	}
	return nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
