package speech

import (
	"github.com/samber/do/v2"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/speech"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (speech.Engine, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPEngine(HTTPEngineConfig{
			BaseURL:         c.SpeechEngineBaseURL,
			FileTimeout:     c.SpeechFileTimeout,
			ChunkTimeout:    c.SpeechChunkTimeout,
			PhoneticTimeout: c.SpeechPhoneticTimeout,
			HealthTimeout:   c.SpeechHealthTimeout,
		}), nil
	})
}
