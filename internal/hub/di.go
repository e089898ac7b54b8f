package hub

import (
	"github.com/samber/do/v2"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/registry"
	"github.com/siuteam/speaklab/internal/speech"
	"github.com/siuteam/speaklab/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		cfg := do.MustInvoke[*config.Config](i)
		engine := do.MustInvoke[speech.Engine](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return New(cfg, engine, registry.New(cfg.MaxActiveSessions), wh), nil
	})
}
