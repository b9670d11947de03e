package services

import (
	"context"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgchrksv/pdfpodcaster/models"
)

func TestScriptGeneratorDecodesScript(t *testing.T) {
	completer := &fakeCompleter{out: scriptJSON}
	script, err := NewScriptGenerator(completer).Generate(context.Background(), "source text")
	require.NoError(t, err)

	assert.Equal(t, "source text", completer.userText)
	assert.Equal(t, "Welcome to the show", script.Introduction)
	require.Len(t, script.MainTalkingPoints, 3)
	assert.Equal(t, models.TalkingPoint{Title: "Second", Content: "second point"}, script.MainTalkingPoints[1])
	assert.Equal(t, "Subscribe now", script.CallToAction)
}

func TestScriptGeneratorAcceptsEmptyTalkingPoints(t *testing.T) {
	completer := &fakeCompleter{out: `{"introduction":"i","main_talking_points":[],"conclusion":"c","call_to_action":"a"}`}
	script, err := NewScriptGenerator(completer).Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, script.SectionCount())
}

func TestGenaiSchemaConversion(t *testing.T) {
	s := genaiSchema(PodcastScriptSchema)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"introduction", "main_talking_points", "conclusion", "call_to_action"}, s.Required)
	points := s.Properties["main_talking_points"]
	require.NotNil(t, points)
	assert.Equal(t, genai.TypeArray, points.Type)
	require.NotNil(t, points.Items)
	assert.Equal(t, genai.TypeObject, points.Items.Type)
	assert.Equal(t, genai.TypeString, points.Items.Properties["title"].Type)
	assert.Nil(t, genaiSchema(nil))
}

func TestGoogleSpeechRequest(t *testing.T) {
	req := googleSpeechRequest(SpeechRequest{Voice: "en-US-Standard-C", Format: "ogg", Text: "hello", Instructions: "ignored"}, "")

	assert.Equal(t, "hello", req.GetInput().GetText())
	assert.Equal(t, "en-US", req.GetVoice().GetLanguageCode())
	assert.Equal(t, "en-US-Standard-C", req.GetVoice().GetName())
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_NEUTRAL, req.GetVoice().GetSsmlGender())
	assert.Equal(t, texttospeechpb.AudioEncoding_OGG_OPUS, req.GetAudioConfig().GetAudioEncoding())
}

func TestGoogleSpeechRequestMapsOpenAIVoices(t *testing.T) {
	for _, voice := range []string{"nova", "Alloy", "shimmer"} {
		req := googleSpeechRequest(SpeechRequest{Voice: voice, Text: "hi"}, "en-GB")
		assert.Equal(t, DefaultGoogleVoice, req.GetVoice().GetName(), voice)
		assert.Equal(t, "en-GB", req.GetVoice().GetLanguageCode())
	}
	req := googleSpeechRequest(SpeechRequest{Voice: "en-GB-Wavenet-B", Text: "hi"}, "en-GB")
	assert.Equal(t, "en-GB-Wavenet-B", req.GetVoice().GetName())
}

func TestGoogleEncoding(t *testing.T) {
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, googleEncoding("mp3"))
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, googleEncoding(""))
	assert.Equal(t, texttospeechpb.AudioEncoding_LINEAR16, googleEncoding("WAV"))
}
