package gateway

import (
	"github.com/samber/do/v2"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/hub"
	"github.com/siuteam/speaklab/internal/speech"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		h := do.MustInvoke[*hub.Hub](i)
		engine := do.MustInvoke[speech.Engine](i)
		return NewServer(cfg, h, engine), nil
	})
}
