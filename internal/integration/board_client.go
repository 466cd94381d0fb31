package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mautops/governance-gin/internal/config"
	"github.com/mautops/governance-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// BoardClient 治理看板客户端
// 门禁任务完成信号与下游任务创建都通过它访问外部看板系统
type BoardClient interface {
	// IsGatingTaskDone 查询指定泳道的门禁任务是否已完成
	IsGatingTaskDone(ctx context.Context, projectID string, lane workflow.GateLane) (bool, error)
	// EnsureTask 确保项目下存在指定标题的任务,已存在时幂等返回
	EnsureTask(ctx context.Context, projectID string, title string) error
}

// httpBoardClient 基于 HTTP 的治理看板客户端实现
type httpBoardClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logrus.Logger
}

// NewBoardClient 创建治理看板客户端
func NewBoardClient(cfg config.BoardConfig, logger *logrus.Logger) BoardClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpBoardClient{
		baseURL: cfg.APIURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// gateTaskResponse 门禁任务查询响应
type gateTaskResponse struct {
	Done bool `json:"done"`
}

// IsGatingTaskDone 查询门禁任务状态
// 看板不可达时按未完成处理并记录日志,对账在下一次调用时重试
func (c *httpBoardClient) IsGatingTaskDone(ctx context.Context, projectID string, lane workflow.GateLane) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/projects/%s/gates?lane=%s",
		c.baseURL, url.PathEscape(projectID), url.QueryEscape(string(lane)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build gate request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"lane":       lane,
		}).WithError(err).Warn("governance board unreachable, treating gate as not done")
		return false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"lane":       lane,
			"status":     resp.StatusCode,
		}).Warn("unexpected board response, treating gate as not done")
		return false, nil
	}

	var body gateTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode gate response: %w", err)
	}
	return body.Done, nil
}

// ensureTaskRequest 任务创建请求体
type ensureTaskRequest struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// EnsureTask 幂等创建下游任务
func (c *httpBoardClient) EnsureTask(ctx context.Context, projectID string, title string) error {
	payload, err := json.Marshal(ensureTaskRequest{ProjectID: projectID, Title: title})
	if err != nil {
		return fmt.Errorf("failed to marshal task request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/projects/%s/tasks", c.baseURL, url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build task request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to ensure board task: %w", err)
	}
	defer resp.Body.Close()

	// PUT 语义: 200/201/204/409 都视为任务已存在
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusConflict:
		return nil
	}
	return fmt.Errorf("unexpected board response ensuring task: %d", resp.StatusCode)
}
