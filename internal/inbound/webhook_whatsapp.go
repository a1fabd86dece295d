package inbound

import (
	"net/http"
	"strings"

	"movingintake/internal/engine"
	movinghttp "movingintake/internal/http"
	"movingintake/platform/httpkit"
	"movingintake/platform/sanitize"
	"movingintake/platform/validator"

	"github.com/gin-gonic/gin"
)

var webhookValidator = validator.New()

// whatsappWebhookPayload is the inbound shape this repository's gateway
// (see internal/whatsapp) posts on message receipt. Buttons round-trip as
// plain text since the gateway has no native quick-reply primitive; the
// engine's intent detector treats the numbered choice the same as free text.
type whatsappWebhookPayload struct {
	DeviceID  string `json:"device_id" validate:"required"`
	From      string `json:"from" validate:"required"`
	MessageID string `json:"message_id" validate:"required"`
	Text      string `json:"text"`
	Location  *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Media []struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
		Size     int64  `json:"size"`
	} `json:"media"`
}

// Module wires the /webhooks/whatsapp ingress route.
type Module struct {
	uc *UseCase
}

// NewModule builds the inbound HTTP module.
func NewModule(uc *UseCase) *Module {
	return &Module{uc: uc}
}

// Name implements http.Module.
func (m *Module) Name() string { return "inbound" }

// RegisterRoutes implements http.Module.
func (m *Module) RegisterRoutes(ctx *movinghttp.RouterContext) {
	ctx.V1.POST("/webhooks/whatsapp", m.handleWhatsApp)
}

func (m *Module) handleWhatsApp(c *gin.Context) {
	var body whatsappWebhookPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload", nil)
		return
	}
	if err := webhookValidator.Struct(body); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "device_id, from, and message_id are required", nil)
		return
	}

	ev := ProviderEvent{
		Provider:          "whatsapp",
		ProviderAccountID: body.DeviceID,
		ChatID:            body.From,
		MessageID:         body.MessageID,
		Event:             toInputEvent(body),
	}

	if err := m.uc.Handle(c.Request.Context(), ev); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to process message", nil)
		return
	}
	httpkit.OK(c, gin.H{"status": "accepted"})
}

func toInputEvent(body whatsappWebhookPayload) engine.InputEvent {
	if body.Location != nil {
		return engine.InputEvent{Location: &engine.GeoPoint{Lat: body.Location.Lat, Lng: body.Location.Lng}}
	}
	if len(body.Media) > 0 {
		items := make([]engine.MediaItemInput, 0, len(body.Media))
		for _, mm := range body.Media {
			items = append(items, engine.MediaItemInput{ContentType: mm.MimeType, SizeBytes: mm.Size, SourceRef: mm.URL})
		}
		return engine.InputEvent{Media: items}
	}
	text := sanitize.Text(strings.TrimSpace(body.Text))
	return engine.InputEvent{Text: &text}
}
