package webhook

import (
	"github.com/samber/do/v2"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (webhook.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(c.FeedbackWebhookURL), nil
	})
}
