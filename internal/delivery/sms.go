package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"event_messaging_backend/platform/config"
	"event_messaging_backend/platform/logger"
	"event_messaging_backend/platform/phone"
)

// SMSSender delivers over the GHL SMS gateway.
type SMSSender struct {
	baseURL    string
	apiKey     string
	locationID string
	http       *http.Client
	log        *logger.Logger
}

type smsRequest struct {
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	LocationID string `json:"locationId,omitempty"`
}

type smsResponse struct {
	MessageID string `json:"messageId"`
}

func NewSMSSender(cfg config.DeliveryConfig, log *logger.Logger) *SMSSender {
	if !cfg.IsSMSEnabled() {
		return nil
	}

	return &SMSSender{
		baseURL:    strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:     cfg.GetSMSGatewayKey(),
		locationID: cfg.GetSMSGatewayLocation(),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (s *SMSSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if s == nil {
		return Receipt{}, fmt.Errorf("sms gateway not configured")
	}

	payload := smsRequest{
		Phone:      phone.NormalizeE164(msg.Phone),
		Message:    msg.Body,
		LocationID: s.locationID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal sms payload: %w", err)
	}

	url := fmt.Sprintf("%s/conversations/messages", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return Receipt{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		// Network failures and timeouts are worth a retry.
		return Receipt{}, Transient(fmt.Errorf("sms request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Receipt{}, Transient(fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, string(respBody)))
	case resp.StatusCode >= 300:
		return Receipt{}, fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed smsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		s.log.Warn("sms gateway response not parseable", "error", err.Error())
	}
	return Receipt{ProviderID: parsed.MessageID}, nil
}
