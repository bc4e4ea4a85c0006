package tagging

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
)

// CRMClient posts engagement tags to the external CRM. Tagging is fire
// and forget: failures are logged and never surface into handler results.
type CRMClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type applyTagsRequest struct {
	ContactID string   `json:"contactId"`
	Tags      []string `json:"tags"`
}

func NewCRMClient(cfg config.CRMConfig, log *logger.Logger) *CRMClient {
	if !cfg.IsCRMEnabled() {
		return nil
	}

	return &CRMClient{
		baseURL: strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		apiKey:  cfg.GetCRMAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// ApplyTags pushes tags to the CRM contact in the background. It returns
// immediately; delivery is detached from the caller's context so an
// already-answered webhook does not cancel the tag write.
func (c *CRMClient) ApplyTags(ctx context.Context, contactID string, tags []string) {
	if c == nil || contactID == "" || len(tags) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, 15*time.Second)
		defer cancel()

		if err := c.post(ctx, contactID, tags); err != nil {
			c.log.Error("crm tag application failed",
				"contact_id", contactID,
				"tags", tags,
				"error", err.Error(),
			)
		}
	}()
}

func (c *CRMClient) post(ctx context.Context, contactID string, tags []string) error {
	body, err := json.Marshal(applyTagsRequest{ContactID: contactID, Tags: tags})
	if err != nil {
		return fmt.Errorf("marshal crm payload: %w", err)
	}

	url := fmt.Sprintf("%s/contacts/%s/tags", c.baseURL, contactID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("crm returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
