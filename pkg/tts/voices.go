package tts

import "strings"

// OpenAI voice IDs.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAIVoices is the OpenAI voice catalog. All voices speak English;
// names carry the voice gender the way platform voice lists do.
var OpenAIVoices = []Voice{
	{ID: VoiceNova, Name: "Nova Female", Lang: "en-US"},
	{ID: VoiceShimmer, Name: "Shimmer Female", Lang: "en-US"},
	{ID: VoiceAlloy, Name: "Alloy", Lang: "en-US"},
	{ID: VoiceFable, Name: "Fable", Lang: "en-GB"},
	{ID: VoiceEcho, Name: "Echo Male", Lang: "en-US"},
	{ID: VoiceOnyx, Name: "Onyx Male", Lang: "en-US"},
}

// ElevenLabsVoices is the preset ElevenLabs catalog, keyed by voice ID.
var ElevenLabsVoices = []Voice{
	{ID: "XB0fDUnXU5powFXDhCwa", Name: "Charlotte Female", Lang: "en-GB"},
	{ID: "9BWtsMINqrJLrRacOk9x", Name: "Aria Female", Lang: "en-US"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah Female", Lang: "en-US"},
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel Female", Lang: "en-US"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh Male", Lang: "en-US"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam Male", Lang: "en-US"},
}

// DefaultElevenLabsVoice is the default voice preset.
const DefaultElevenLabsVoice = "charlotte"

// ResolveElevenLabsVoice returns the voice ID for a preset first name
// ("charlotte", "Rachel"), or the input unchanged if it is already an ID.
func ResolveElevenLabsVoice(name string) string {
	for _, v := range ElevenLabsVoices {
		first, _, _ := strings.Cut(v.Name, " ")
		if strings.EqualFold(first, name) {
			return v.ID
		}
	}
	return name
}
