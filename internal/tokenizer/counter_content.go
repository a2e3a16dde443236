package tokenizer

import (
	"strings"

	"github.com/modelgate/modelgate/internal/types"
)

// Image token constants (OpenAI rules).
const (
	imageBaseTokens     = 85  // flat cost for any image
	imageTileTokens     = 170 // per 512x512 tile
	imageLowDetailTiles = 1
	imageHighDetailMax  = 4 // estimate; real tiling needs image dimensions
)

// countContent counts message content in either shape. Text parts are
// tokenized; image parts cost a fixed estimate by detail level.
func (t *TiktokenTokenizer) countContent(content types.Content, model string) (int, error) {
	if content.Text != "" {
		return t.CountTokens(content.Text, model)
	}

	total := 0
	for _, part := range content.Parts {
		switch part.Type {
		case types.ContentTypeText:
			tokens, err := t.counts(model, part.Text)
			if err != nil {
				return 0, err
			}
			total += tokens
		case types.ContentTypeImageURL:
			total += imageTokens(part.ImageURL)
		}
	}
	return total, nil
}

// imageTokens estimates an image's token cost. "low" detail is a single
// tile; "high", "auto" and unspecified use the fixed high-detail estimate.
func imageTokens(img *types.ImageURL) int {
	if img == nil {
		return 0
	}
	if strings.ToLower(img.Detail) == "low" {
		return imageBaseTokens + imageLowDetailTiles*imageTileTokens
	}
	return imageBaseTokens + imageHighDetailMax*imageTileTokens
}
