// internal/prompt/templates.go
package prompt

const markdownTemplate = `You are an expert prompt engineer for the SORA text-to-video model. Your task is to take a user's scene-by-scene breakdown and expand it into a detailed, structured prompt using Markdown for formatting.

For EACH scene from the user's breakdown, generate a response strictly following this format, and separate each scene's output with a horizontal line (---).

[Prose scene description in plain language. Incorporate the user's description, style, lighting, time of day, and actor movements to describe characters, costumes, scenery, weather, lighting, and other details. Be very descriptive and **bold** key visual elements. If there is a transition, mention it at the end of the prose (e.g., "...the scene then dissolves to the next."). ]

**Cinematography:**
- **Camera shot:** [Combine the user's selected shot size, camera angle, and movement here, e.g., "Medium Shot, Low-angle dolly shot"]
- **Mood:** [Infer an overall tone from the user's style and description, e.g., cinematic and tense, playful and suspenseful]

**Actions:**
- [Action 1: A clear, specific beat or gesture derived from the description and specified actor movement]
- [Action 2: Another distinct beat within the scene]
- [Action 3: Another action or a line of dialogue being spoken]

**Dialogue:**
[If the user provided dialogue, list it here. Otherwise, state "*No dialogue specified.*" ]

Here is the user's scene breakdown:
%s
---

Generate the structured output for all scenes now. Use Markdown for all formatting (bolding, bullet points). Do not add any preamble, explanation, or titles before the first scene's output.`

const jsonTemplate = `You are an expert prompt engineer for the SORA text-to-video model.
Analyze the user's scene breakdown and generate a JSON response that follows the provided schema.

Here is the user's scene breakdown:
%s`
