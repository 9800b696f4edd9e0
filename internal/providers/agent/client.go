// Package agent pushes firm configuration to the hosted voice-agent
// platform. The only call in use is updating an agent's knowledge URL
// after a knowledge document recompile.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/firmline/firmline/internal/config"
	"go.uber.org/zap"
)

const requestTimeout = 12 * time.Second

var (
	ErrAgentAPIRejected   = errors.New("agent_api_rejected")
	ErrAgentNotConfigured = errors.New("agent_not_configured")
)

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(cfg.AgentAPIBaseURL, "/"),
		apiKey:  cfg.AgentAPIKey,
		log:     log.Named("providers.agent"),
	}
}

// UpdateKnowledgeURL points the remote agent at a new knowledge
// document URL. apiKey overrides the process-wide key when the firm
// carries its own credential. The call is not retried; callers decide
// whether a failed push matters.
func (c *Client) UpdateKnowledgeURL(ctx context.Context, agentID, apiKey, knowledgeURL string) error {
	if agentID == "" {
		return ErrAgentNotConfigured
	}
	key := apiKey
	if key == "" {
		key = c.apiKey
	}

	body, err := json.Marshal(map[string]string{"knowledge_url": knowledgeURL})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/agents/%s", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAgentAPIRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("agent update rejected",
			zap.String("agent_id", agentID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail),
		)
		return fmt.Errorf("%w: status %d", ErrAgentAPIRejected, resp.StatusCode)
	}
	return nil
}
