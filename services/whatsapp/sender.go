// Package whatsapp transmits the engine's replies over the WhatsApp Cloud
// API. The engine decides shape and content; this package only maps the
// three reply shapes onto the provider's JSON and posts them.
package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// CloudAPISender posts messages through the Graph API.
type CloudAPISender struct {
	client  *http.Client
	apiBase string
	phoneID string
	token   string
	logger  *zap.Logger
}

func NewCloudAPISender(logger *zap.Logger) *CloudAPISender {
	return &CloudAPISender{
		client:  &http.Client{Timeout: 10 * time.Second},
		apiBase: config.AppConfig.WhatsAppAPIBase,
		phoneID: config.AppConfig.WhatsAppPhoneID,
		token:   config.AppConfig.WhatsAppToken,
		logger:  logger,
	}
}

func (s *CloudAPISender) Send(to string, reply models.Reply) error {
	payload, err := buildPayload(to, reply)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.apiBase, s.phoneID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("message send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("message send returned %d: %s", resp.StatusCode, string(respBody))
	}
	s.logger.Debug("message sent",
		zap.String("to", to), zap.String("kind", string(reply.Kind)))
	return nil
}

func buildPayload(to string, reply models.Reply) (map[string]interface{}, error) {
	base := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
	}

	switch reply.Kind {
	case models.ReplyText:
		base["type"] = "text"
		base["text"] = map[string]interface{}{"body": reply.Body}

	case models.ReplyButtons:
		if len(reply.Options) == 0 || len(reply.Options) > 3 {
			return nil, fmt.Errorf("button reply needs 1-3 options, got %d", len(reply.Options))
		}
		buttons := make([]map[string]interface{}, 0, len(reply.Options))
		for _, opt := range reply.Options {
			buttons = append(buttons, map[string]interface{}{
				"type":  "reply",
				"reply": map[string]string{"id": opt.ID, "title": opt.Title},
			})
		}
		base["type"] = "interactive"
		base["interactive"] = map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": reply.Body},
			"action": map[string]interface{}{"buttons": buttons},
		}

	case models.ReplyList:
		if len(reply.Options) == 0 {
			return nil, fmt.Errorf("list reply needs at least one option")
		}
		rows := make([]map[string]string, 0, len(reply.Options))
		for _, opt := range reply.Options {
			row := map[string]string{"id": opt.ID, "title": opt.Title}
			if opt.Description != "" {
				row["description"] = opt.Description
			}
			rows = append(rows, row)
		}
		listButton := reply.ListTitle
		if listButton == "" {
			listButton = "Choose"
		}
		base["type"] = "interactive"
		base["interactive"] = map[string]interface{}{
			"type": "list",
			"body": map[string]string{"text": reply.Body},
			"action": map[string]interface{}{
				"button":   listButton,
				"sections": []map[string]interface{}{{"rows": rows}},
			},
		}

	default:
		return nil, fmt.Errorf("unknown reply kind %q", reply.Kind)
	}
	return base, nil
}
