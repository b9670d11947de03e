package services

import "github.com/google/generative-ai-go/genai"

// Schema is a JSON schema subset understood by both language model providers.
type Schema struct {
	Type                 string             `json:"type"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
}

func closed() *bool {
	b := false
	return &b
}

// PodcastScriptSchema constrains model output to models.PodcastScript.
var PodcastScriptSchema = &Schema{
	Type: "object",
	Properties: map[string]*Schema{
		"introduction": {
			Type:        "string",
			Description: "Engaging opening statement to capture the audience's attention.",
		},
		"main_talking_points": {
			Type:        "array",
			Description: "Sections discussing the central ideas or arguments.",
			Items: &Schema{
				Type: "object",
				Properties: map[string]*Schema{
					"title": {
						Type:        "string",
						Description: "The title of the main talking point.",
					},
					"content": {
						Type:        "string",
						Description: "The narrative content of the talking point.",
					},
				},
				Required:             []string{"title", "content"},
				AdditionalProperties: closed(),
			},
		},
		"conclusion": {
			Type:        "string",
			Description: "Summary of the key takeaways from the episode.",
		},
		"call_to_action": {
			Type:        "string",
			Description: "A clear and compelling call to action for the audience.",
		},
	},
	Required:             []string{"introduction", "main_talking_points", "conclusion", "call_to_action"},
	AdditionalProperties: closed(),
}

// genaiSchema converts s for the Gemini response schema.
func genaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Items:       genaiSchema(s.Items),
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = genaiSchema(prop)
		}
	}
	return out
}
