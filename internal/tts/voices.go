package tts

import "sort"

// DefaultVoice is used when a request names no voice or an unknown one.
const DefaultVoice = "nanami"

var voices = map[string]string{
	"nanami": "ja-JP-NanamiNeural",
	"keita":  "ja-JP-KeitaNeural",
}

// ResolveVoice maps a voice id to the collaborator's voice name.
func ResolveVoice(id string) string {
	if name, ok := voices[id]; ok {
		return name
	}
	return voices[DefaultVoice]
}

// VoiceIDs lists the known voice ids in order.
func VoiceIDs() []string {
	ids := make([]string, 0, len(voices))
	for id := range voices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
