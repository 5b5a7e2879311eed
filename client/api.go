package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pollarena/protocol"
)

// StatusError 非预期的 HTTP 状态码
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// PollResult 一次长轮询的结果；Updated 为 false 表示“无更新”（204）
type PollResult struct {
	Positions []protocol.Position
	Version   uint64
	Updated   bool
}

// API 同步服务的 HTTP 客户端
type API struct {
	BaseURL string
	HTTP    *http.Client
}

// NewAPI 创建客户端；httpClient 为 nil 时使用 http.DefaultClient
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

func (a *API) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.HTTP.Do(req)
}

// Register 申请新的玩家标识
func (a *API) Register(ctx context.Context) (protocol.PlayerID, error) {
	resp, err := a.do(ctx, http.MethodGet, protocol.PathRegister, nil)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("register: %w", &StatusError{Code: resp.StatusCode})
	}
	var id protocol.PlayerID
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return "", fmt.Errorf("register: decode: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("register: empty id")
	}
	return id, nil
}

// Snapshot 立即获取全部位置
func (a *API) Snapshot(ctx context.Context) (PollResult, error) {
	resp, err := a.do(ctx, http.MethodGet, protocol.PathPositions, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return PollResult{}, fmt.Errorf("snapshot: %w", &StatusError{Code: resp.StatusCode})
	}
	return decodePositions(resp)
}

// Wait 长轮询：不早于 since 之后的版本返回
func (a *API) Wait(ctx context.Context, since uint64) (PollResult, error) {
	path := protocol.PathWaitPositions + "?" + protocol.SinceParam + "=" + strconv.FormatUint(since, 10)
	resp, err := a.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("wait: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return decodePositions(resp)
	case http.StatusNoContent:
		return PollResult{}, nil
	default:
		return PollResult{}, fmt.Errorf("wait: %w", &StatusError{Code: resp.StatusCode})
	}
}

// Move 提交一次移动；服务端对非法请求同样返回 200
func (a *API) Move(ctx context.Context, m protocol.MoveRequest) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	resp, err := a.do(ctx, http.MethodPost, protocol.PathMove, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("move: %w", &StatusError{Code: resp.StatusCode})
	}
	return nil
}

func decodePositions(resp *http.Response) (PollResult, error) {
	var positions []protocol.Position
	if err := json.NewDecoder(resp.Body).Decode(&positions); err != nil {
		return PollResult{}, fmt.Errorf("decode positions: %w", err)
	}
	r := PollResult{Positions: positions, Updated: true}
	if v := resp.Header.Get(protocol.VersionHeader); v != "" {
		version, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return PollResult{}, fmt.Errorf("version header %q: %w", v, err)
		}
		r.Version = version
	}
	return r, nil
}
