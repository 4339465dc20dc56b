package docstore

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

	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/logger"
)

// ErrNotPinned 发布服务没有返回内容哈希
var ErrNotPinned = errors.New("document was not pinned")

// Client 链下文档存储客户端：网关读取和固定服务发布
type Client struct {
	httpClient *http.Client
	pinURL     string
	pinJWT     string
}

// NewClient 创建文档存储客户端
func NewClient(cfg config.DocstoreConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		pinURL:     cfg.PinURL,
		pinJWT:     cfg.PinJWT,
	}
}

// JoinGateway 拼接网关地址和文档引用，引用可以是 /ipfs/<cid> 或裸 cid
func JoinGateway(gateway, ref string) string {
	gateway = strings.TrimRight(gateway, "/")
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "ipfs://"):
		return gateway + "/ipfs/" + strings.TrimPrefix(ref, "ipfs://")
	case strings.HasPrefix(ref, "/"):
		return gateway + ref
	default:
		return gateway + "/ipfs/" + ref
	}
}

// FetchJSON 读取文档并解码到 out
func (c *Client) FetchJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to fetch %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", url, err)
	}
	return nil
}

type pinRequest struct {
	PinataMetadata struct {
		Name string `json:"name"`
	} `json:"pinataMetadata"`
	PinataContent interface{} `json:"pinataContent"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinJSON 发布 JSON 文档，返回内容哈希
func (c *Client) PinJSON(ctx context.Context, name string, doc interface{}) (string, error) {
	if c.pinURL == "" {
		return "", errors.New("docstore.pin_url is not configured")
	}

	var body pinRequest
	body.PinataMetadata.Name = name
	body.PinataContent = doc
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pinURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.pinJWT != "" {
		req.Header.Set("Authorization", "Bearer "+c.pinJWT)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to pin document %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("failed to pin document %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode pin response: %w", err)
	}
	if result.IpfsHash == "" {
		return "", ErrNotPinned
	}

	logger.Info("Pinned document %s as %s (%d bytes)", name, result.IpfsHash, result.PinSize)
	return result.IpfsHash, nil
}
