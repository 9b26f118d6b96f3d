package block

import "strings"

type EmbedProvider string

const (
	EmbedYouTube EmbedProvider = "youtube"
	EmbedVimeo   EmbedProvider = "vimeo"
	EmbedGeneric EmbedProvider = "generic"
)

// DetectEmbedType classifies an embed URL by provider.
func DetectEmbedType(url string) EmbedProvider {
	switch {
	case strings.Contains(url, "youtube.com"), strings.Contains(url, "youtu.be"):
		return EmbedYouTube
	case strings.Contains(url, "vimeo.com"):
		return EmbedVimeo
	default:
		return EmbedGeneric
	}
}
