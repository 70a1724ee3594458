package gemini

import "dugo-banana-studio/internal/prompt"

func styleInstruction(emphasis prompt.StyleEmphasis) string {
	switch emphasis {
	case prompt.EmphasisColor:
		return "You are an expert color theorist. Describe the color palette of this image in extreme detail. Identify the dominant, secondary, and accent colors. Describe the saturation, brightness, and overall color harmony (e.g., analogous, complementary, monochromatic). Mention any specific color grading or tones."
	case prompt.EmphasisLighting:
		return "You are a professional photographer. Describe the lighting in this image in extreme detail. Identify the type of light (natural, studio, etc.), its direction (front, side, back), its quality (hard, soft, diffused), and the nature of the shadows it creates. Describe the mood the lighting evokes."
	case prompt.EmphasisTexture:
		return "Describe the textures and materials visible in this image in extreme detail. Focus on surfaces, fabrics, and finishes. Use descriptive words like glossy, matte, rough, smooth, woven, metallic, etc. Explain how light interacts with these textures."
	case prompt.EmphasisComposition:
		return "You are an expert in visual composition. Analyze and describe the composition of this image in detail. Discuss the rule of thirds, leading lines, framing, symmetry/asymmetry, depth of field, and the arrangement of elements within the frame."
	case prompt.EmphasisBackground:
		return "You are a professional set designer and background artist. Describe ONLY the background of this image in extreme detail. Ignore the main subject. Focus on the environment, texture of the surfaces, colors, lighting, and depth of field (e.g., 'a softly blurred, out-of-focus industrial loft with warm sunlight streaming through a window')."
	case prompt.EmphasisProductDetail:
		return "You are a macro product photographer. Describe ONLY the physical characteristics of the main subject in this image. Focus on the material finish (e.g., 'brushed aluminum with subtle specular highlights', 'matte-finish plastic', 'transparent glass with light refractions'), textures, and fine details. Ignore the background and overall composition."
	case prompt.EmphasisColorCorrection:
		return "You are a professional colorist. Analyze and describe the color grading of this image in technical detail. Discuss the white balance (cool/warm), contrast level (high/low), saturation, and any specific color shifts in the highlights, midtones, and shadows (e.g., 'cool, cyan-tinted shadows and warm, slightly desaturated highlights for a cinematic look')."
	default:
		return "You are a world-class art director and photographer. Describe the visual style of this image in extreme detail. Focus on the mood, color palette, lighting (type, direction, quality, shadows), composition, texture, and overall aesthetic. The description should be a comprehensive guide for an AI to replicate this style on a different photo."
	}
}

const compositionInstruction = "Briefly and objectively describe the main subject and its immediate placement in this image, focusing on what it is and where it is. For example: 'a single red shoe on a concrete step', 'a watch on a person's wrist', 'a bottle of lotion on a marble countertop'. Do not describe the artistic style, lighting, or background details. Just describe the subject and its context."

const sceneIntro = `You are a world-class creative director for a high-end advertising agency. Your task is to generate a single, highly creative, and cinematic prompt for a professional product photoshoot.

The subject is: "%s".`

const sceneKeywords = "\n\nThe generated scene MUST incorporate the following theme or keywords: \"%s\"."

const sceneBody = `

The prompt must describe a stunning, unique, and visually striking scene where the product is the hero. Be imaginative, bold, and avoid generic clichés like 'on a table' or 'in a studio'. Think epic, luxurious, natural, or futuristic.

Here are some examples of the desired style and quality:
- "An epic shot of the product resting on a floating ice shard in a serene glacial lagoon, with the aurora borealis glowing faintly in the sky."
- "The product sits on a wet asphalt street at night, reflecting the vibrant neon lights of a futuristic, bustling cityscape in the background."
- "A luxurious macro shot focusing on the product, surrounded by a delicate swirl of colored smoke or powder against a dark, elegant backdrop."
- "A stunning photo of the product partially buried in fine, golden desert sand at sunset, with long, elegant shadows stretching across the dunes."

Your output must be ONLY the generated prompt itself, ready to be used by an image generation AI. Do not add any extra text, titles, or quotation marks around the output.`

const templateInstruction = `You are a world-class creative director for a high-end advertising agency. Your task is to generate a single, highly creative, and cinematic prompt for a professional product photoshoot. The prompt should describe a stunning, unique, and visually striking scene.

IMPORTANT: The prompt MUST be written to apply to any generic product. Use the exact placeholder '[PRODUCT]' where the product name or description should go.

Here are some examples of the desired style and quality:
- "An epic, cinematic shot of [PRODUCT] resting on a floating ice shard in a serene glacial lagoon, with the aurora borealis glowing faintly in the sky."
- "[PRODUCT] sits on a wet asphalt street at night, its form reflecting the vibrant neon lights of a futuristic, bustling cityscape in the background."
- "A luxurious macro shot focusing on [PRODUCT], surrounded by a delicate swirl of colored smoke or powder against a dark, elegant backdrop."
- "A stunning photo of [PRODUCT] partially buried in fine, golden desert sand at sunset, with long, elegant shadows stretching across the dunes."

Your output must be ONLY the generated prompt itself, containing the '[PRODUCT]' placeholder. Do not add any extra text, titles, or quotation marks around the output.`

const negativeSuffix = "\n\nIMPORTANT: Do not include the following elements: %s"

const maskInstruction = "Analyze the provided image and identify the main product. Generate a black and white segmentation mask for it. The main product must be completely solid white (#FFFFFF) and everything else (background, shadows, etc.) must be completely solid black (#000000). The output must be an image, not code or text."

func enhanceInstruction(level prompt.EnhancementLevel) string {
	switch level {
	case prompt.EnhanceSubtle:
		return "Analyze this image. Redraw it, preserving the original composition and subject perfectly, but with subtly refined details. Clean up any minor visual artifacts and slightly increase the overall sharpness and clarity. The goal is a gentle, clean enhancement."
	case prompt.EnhanceArtistic:
		return "Use this image as a base. Re-render it with an artistic touch. Dramatically enhance the colors, deepen the contrast, and refine the lighting to be more cinematic and impactful. Add fine, stylized details to the textures while keeping the core subject and composition intact."
	default:
		return "This is a good image, but it needs a final enhancement. Redraw this image with hyper-realistic details. Significantly increase the level of fine detail in the textures, refine the lighting to be more natural and crisp, and enhance the overall sharpness and definition. The composition and subject must remain identical. The goal is photorealism."
	}
}
