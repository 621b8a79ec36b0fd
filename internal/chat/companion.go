package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// CompanionBackend reads and posts messages through the companion server's own
// REST API, authenticating with the session id issued at login.
type CompanionBackend struct {
	BaseURL   string
	SessionID string
	Client    *http.Client
}

func (b *CompanionBackend) url(conversationID int64) string {
	return strings.TrimRight(b.BaseURL, "/") + "/api/chat/conversations/" + strconv.FormatInt(conversationID, 10) + "/messages"
}

func (b *CompanionBackend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}

func (b *CompanionBackend) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+b.SessionID)
	req.Header.Set("Accept", "application/json")
	resp, err := b.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
			return fmt.Errorf("%s", body.Error)
		}
		return fmt.Errorf("companion server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (b *CompanionBackend) GetMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url(conversationID), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := b.do(req, &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = []models.Message{}
	}
	return out.Messages, nil
}

func (b *CompanionBackend) PostMessage(ctx context.Context, conversationID int64, content string) (*models.Message, error) {
	data, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url(conversationID), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out struct {
		Message *models.Message `json:"message"`
	}
	if err := b.do(req, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}
