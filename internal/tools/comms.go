package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type emailArgs struct {
	To      string `mapstructure:"to"`
	Subject string `mapstructure:"subject"`
	Body    string `mapstructure:"body"`
	CC      string `mapstructure:"cc"`
	BCC     string `mapstructure:"bcc"`
}

type smsArgs struct {
	PhoneNumber string `mapstructure:"phone_number"`
	Message     string `mapstructure:"message"`
}

func (r *Registry) registerComms() error {
	const category = "communication"
	if err := r.Register(Spec{
		Name: "send_email", Category: category, Description: "Send an email (simulated).",
		Params: []Param{
			{Name: "to", Type: TypeString, Required: true},
			{Name: "subject", Type: TypeString, Required: true},
			{Name: "body", Type: TypeString, Required: true},
			{Name: "cc", Type: TypeString},
			{Name: "bcc", Type: TypeString},
		},
	}, typed(r.sendEmail)); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "generate_confirmation_code", Category: category, Description: "One-time confirmation code.",
	}, typed(func(_ context.Context, _ struct{}) (map[string]any, error) {
		var b strings.Builder
		for range 8 {
			b.WriteByte(confirmationAlphabet[r.rand.IntN(len(confirmationAlphabet))])
		}
		return map[string]any{
			"code":       b.String(),
			"expires_in": "15 minutes",
			"generated":  r.timestamp(),
		}, nil
	})); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "send_sms", Category: category, Description: "Send a text message (simulated).",
		Params: []Param{
			{Name: "phone_number", Type: TypeString, Required: true},
			{Name: "message", Type: TypeString, Required: true},
		},
	}, typed(func(_ context.Context, in smsArgs) (map[string]any, error) {
		log.Debug().Str("to", in.PhoneNumber).Int("chars", len(in.Message)).Msg("sms sent")
		return map[string]any{
			"status":        "sent",
			"to":            in.PhoneNumber,
			"message_id":    r.messageID("sms"),
			"message_chars": len([]rune(in.Message)),
			"timestamp":     r.timestamp(),
		}, nil
	}))
}

func (r *Registry) sendEmail(_ context.Context, in emailArgs) (map[string]any, error) {
	log.Debug().Str("to", in.To).Str("subject", in.Subject).Msg("email sent")
	out := map[string]any{
		"status":     "sent",
		"to":         in.To,
		"subject":    in.Subject,
		"message_id": r.messageID("msg"),
		"timestamp":  r.timestamp(),
	}
	if in.CC != "" {
		out["cc"] = in.CC
	}
	if in.BCC != "" {
		out["bcc"] = in.BCC
	}
	return out, nil
}

func (r *Registry) messageID(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, r.now().Unix(), r.between(1000, 9999))
}
