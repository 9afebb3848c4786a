package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benjamins-shop/storefront-backend/pkg/config"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

const (
	baseURL = "https://api.cloudinary.com/v1_1"

	// incomingTransformation normalizes catalog uploads before storage.
	incomingTransformation = "c_limit,w_800,h_600/q_auto/f_webp"
)

// Client talks to the Cloudinary upload and admin APIs.
type Client struct {
	httpClient *http.Client
	cfg        config.CloudinaryConfig
	now        func() time.Time
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UploadResult captures the subset of the upload response the catalog stores.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
}

func closeBody(ctx context.Context, logg *logger.Logger, body io.Closer, msg string) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && logg != nil {
		logg.Warn(ctx, msg)
	}
}

// NewClient validates credentials and returns a Cloudinary client.
func NewClient(cfg config.CloudinaryConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("cloudinary credentials are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Upload sends the image to Cloudinary applying the standard catalog transformation.
func (c *Client) Upload(ctx context.Context, logg *logger.Logger, filename string, content io.Reader) (*UploadResult, error) {
	if c == nil {
		return nil, errors.New("cloudinary client not initialized")
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"timestamp":      timestamp,
		"folder":         c.cfg.Folder,
		"transformation": incomingTransformation,
	}
	signature := signParams(params, c.cfg.APISecret)

	body := &strings.Builder{}
	writer := multipart.NewWriter(body)
	for key, value := range params {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", key, err)
		}
	}
	if err := writer.WriteField("api_key", c.cfg.APIKey); err != nil {
		return nil, fmt.Errorf("writing api key: %w", err)
	}
	if err := writer.WriteField("signature", signature); err != nil {
		return nil, fmt.Errorf("writing signature: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copying file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", baseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting upload: %w", err)
	}
	defer closeBody(ctx, logg, resp.Body, "closing cloudinary upload response")

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cloudinary upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &result, nil
}

// Destroy removes a previously uploaded asset by its public id.
func (c *Client) Destroy(ctx context.Context, logg *logger.Logger, publicID string) error {
	if c == nil {
		return errors.New("cloudinary client not initialized")
	}
	if strings.TrimSpace(publicID) == "" {
		return errors.New("public id is required")
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	signature := signParams(params, c.cfg.APISecret)

	form := make([]string, 0, 4)
	for key, value := range params {
		form = append(form, fmt.Sprintf("%s=%s", key, value))
	}
	form = append(form, "api_key="+c.cfg.APIKey, "signature="+signature)

	endpoint := fmt.Sprintf("%s/%s/image/destroy", baseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(strings.Join(form, "&")))
	if err != nil {
		return fmt.Errorf("building destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting destroy: %w", err)
	}
	defer closeBody(ctx, logg, resp.Body, "closing cloudinary destroy response")

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cloudinary destroy failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}

// Ping checks credentials against the admin ping endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cloudinary client not initialized")
	}
	endpoint := fmt.Sprintf("%s/%s/ping", baseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinging cloudinary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary ping failed with status %d", resp.StatusCode)
	}
	return nil
}

// signParams produces the SHA-1 request signature Cloudinary expects: the
// sorted key=value pairs joined by '&' with the API secret appended.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, params[key]))
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
