package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mautops/governance-gin/internal/config"
	"github.com/sirupsen/logrus"
)

// Notifier 通知分发器
// fire-and-forget: 通知失败绝不回滚或阻塞底层状态转换
type Notifier interface {
	Notify(recipient string, title string, body string, link string)
}

// webhookNotifier 基于 Webhook 的通知实现
type webhookNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *logrus.Logger
}

// NewNotifier 创建通知分发器
// 未配置 webhook 地址时退化为仅记录日志
func NewNotifier(cfg config.NotifierConfig, logger *logrus.Logger) Notifier {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &webhookNotifier{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// notifyPayload 通知请求体
type notifyPayload struct {
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Link      string `json:"link,omitempty"`
}

// Notify 异步发送通知
func (n *webhookNotifier) Notify(recipient string, title string, body string, link string) {
	entry := n.logger.WithFields(logrus.Fields{
		"recipient": recipient,
		"title":     title,
	})

	if n.webhookURL == "" {
		entry.Info("notification (no webhook configured)")
		return
	}

	go func() {
		payload, err := json.Marshal(notifyPayload{
			Recipient: recipient,
			Title:     title,
			Body:      body,
			Link:      link,
		})
		if err != nil {
			entry.WithError(err).Warn("failed to marshal notification")
			return
		}

		resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(payload))
		if err != nil {
			entry.WithError(err).Warn("failed to deliver notification")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			entry.WithField("status", resp.StatusCode).Warn("notification webhook returned error")
			return
		}
		entry.Debug("notification delivered")
	}()
}
