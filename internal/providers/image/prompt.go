package image

import "strings"

// BasePrompt frames every food marketing generation.
const BasePrompt = "Professional food marketing photography, commercial quality, bright natural lighting, minimalist background, menu-ready presentation, photorealistic, 8K"

// DefaultNegativePrompt captures undesirable artefacts we want the model to avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted, washed out, text artefacts, watermark, unappetising"

// Variations are appended to the base prompt, one per generated image.
var Variations = [...]string{
	" on elegant wooden table surface",
	" with modern monochrome background",
	" with fresh ingredients scattered artfully",
	" with restaurant ambiance blur background",
}

// VariantCount is the number of images produced by one generation.
const VariantCount = len(Variations)

// StylePrompt returns the base prompt with the optional style hint.
func StylePrompt(style string) string {
	if style = strings.TrimSpace(style); style != "" {
		return BasePrompt + ", " + style
	}
	return BasePrompt
}

// VariationPrompts returns the prompts of one generation batch, in order.
func VariationPrompts(style string) []string {
	base := StylePrompt(style)
	out := make([]string, len(Variations))
	for i, v := range Variations {
		out[i] = base + v
	}
	return out
}

// CombinePrompt appends a refinement instruction to the prompt of an image.
func CombinePrompt(original, instruction string) string {
	instruction = strings.TrimSpace(instruction)
	original = strings.TrimSpace(original)
	if original == "" {
		return instruction
	}
	return original + ", " + instruction
}

// DefaultSize is the square DashScope output size.
const DefaultSize = "1328*1328"
