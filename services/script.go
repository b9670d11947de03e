package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// Completer is a language model that answers with text shaped by a JSON schema.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string, schema *Schema) (string, error)
}

const podcastScriptPrompt = `Create a 5-minute podcast episode script in a conversational style, using the content provided.

Include the following elements:

- **Introduction**: Engage your audience with an intriguing opening statement related to the topic. Capture their attention immediately.

- **Main Talking Points**: Develop 3-4 main sections discussing the central ideas or arguments. Use relatable examples and personal stories for better understanding. Maintain a conversational tone, as if you are speaking directly to the listener. Ensure natural transitions between sections to keep the flow.

- **Conclusion**: Summarize the key takeaways in a concise manner, making sure to leave a lasting impression.

- **Call to Action**: End with a clear and compelling call to action encouraging listeners to engage further or reflect on the topic.

# Output Format

Write the script in a conversational and engaging narrative suitable for a podcast. Each section should integrate seamlessly with transitions, emulate a direct speaking style to engage the listener, and reinforce the message.

# Examples

**Introduction**: "Welcome to [Podcast Name]. Today, we're diving into [Topic]. Have you ever wondered...?"

**Main Talking Points**:

1. "Let's start with [Main Idea]. It's like when..."
2. "Moving on to [Next Idea], consider how..."
3. "Finally, when we talk about [Final Idea], there's a story about..."

**Conclusion**: "So, as we've learned today, [Key Takeaway 1], [Key Takeaway 2]..."

**Call to Action**: "Think about how you can [Action]. Join us next time when we explore..."

# Notes

- The script should be written to cater both to novices and those with some prior knowledge.
- Ensure it resonates intellectually and stimulates curiosity among listeners.
- Use transition words to guide listeners smoothly from one idea to the next.`

// ScriptGenerator asks a language model for a podcast script. The returned
// shape is trusted as produced by the provider's schema constraint.
type ScriptGenerator struct {
	completer Completer
}

func NewScriptGenerator(completer Completer) *ScriptGenerator {
	return &ScriptGenerator{completer: completer}
}

func (g *ScriptGenerator) Generate(ctx context.Context, text string) (models.PodcastScript, error) {
	raw, err := g.completer.Complete(ctx, podcastScriptPrompt, text, PodcastScriptSchema)
	if err != nil {
		return models.PodcastScript{}, scriptFailed(err)
	}
	var script models.PodcastScript
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return models.PodcastScript{}, scriptFailed(fmt.Errorf("decode script: %w", err))
	}
	return script, nil
}

func scriptFailed(err error) error {
	return &models.UpstreamServiceError{Kind: models.ErrScriptGenerationFailed, Err: err}
}
