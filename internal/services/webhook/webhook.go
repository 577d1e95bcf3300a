package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/daopoll/pollnode/pkg/queue"
)

type message struct {
	Content string `json:"content"`
}

// Messager posts operational notifications to a Discord-compatible webhook.
type Messager struct {
	BaseURL   string
	ChainName string

	notify bool
}

func NewMessager(baseURL, chainName string, notify bool) queue.Messager {
	return &Messager{
		BaseURL:   baseURL,
		ChainName: chainName,
		notify:    notify,
	}
}

func (m *Messager) send(ctx context.Context, content string) error {
	if !m.notify {
		return nil
	}

	data, err := json.Marshal(message{Content: fmt.Sprintf("[%s] %s", m.ChainName, content)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("error sending message")
	}

	return nil
}

func (m *Messager) Notify(ctx context.Context, msg string) error {
	return m.send(ctx, msg)
}

func (m *Messager) NotifyWarning(ctx context.Context, err error) error {
	return m.send(ctx, fmt.Sprintf("warning: %s", err.Error()))
}

func (m *Messager) NotifyError(ctx context.Context, err error) error {
	return m.send(ctx, fmt.Sprintf("error: %s", err.Error()))
}
