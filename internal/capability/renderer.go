package capability

import (
	"strconv"

	"github.com/loqalabs/loqa-sing/internal/engine"
	"github.com/loqalabs/loqa-sing/internal/tts"
)

// ForRenderer describes what a renderer with cfg can sing. Engines that
// need the speech collaborator are advertised as unavailable without one;
// voices are only listed when a collaborator is configured.
func ForRenderer(cfg engine.EngineConfig) []Capability {
	hasTTS := cfg.TTS != nil
	var caps []Capability
	for _, id := range engine.Engines() {
		available := !id.UsesTTS() || hasTTS
		caps = append(caps, Capability{
			Name: id.String(),
			Kind: KindEngine,
			Attributes: map[string]string{
				"available":   strconv.FormatBool(available),
				"default":     strconv.FormatBool(id == cfg.Mode),
				"sample_rate": strconv.Itoa(cfg.SampleRate),
			},
		})
	}
	if !hasTTS {
		return caps
	}
	for _, id := range tts.VoiceIDs() {
		caps = append(caps, Capability{
			Name: id,
			Kind: KindVoice,
			Attributes: map[string]string{
				"voice":   tts.ResolveVoice(id),
				"default": strconv.FormatBool(id == cfg.TTSVoice),
			},
		})
	}
	return caps
}
