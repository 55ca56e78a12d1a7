package upload

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // required by the media host's signing scheme
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

	"github.com/spec-kit/support-desk/internal/config"
)

// CloudinaryUploader posts signed image uploads to a Cloudinary-compatible API.
type CloudinaryUploader struct {
	baseURL   string
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	client    *http.Client
	now       func() time.Time
}

// NewCloudinaryUploader builds an uploader from configuration.
func NewCloudinaryUploader(cfg config.UploadConfig) *CloudinaryUploader {
	return &CloudinaryUploader{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		client:    &http.Client{Timeout: cfg.Timeout()},
		now:       time.Now,
	}
}

// New returns the configured uploader, or a disabled one when credentials are missing.
func New(cfg config.UploadConfig) Uploader {
	if !cfg.Enabled() {
		return Disabled()
	}
	return NewCloudinaryUploader(cfg)
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends the attachment and returns the hosted URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, attachment Attachment) (string, error) {
	if len(attachment.Data) == 0 {
		return "", errors.New("empty attachment")
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(u.now().Unix(), 10),
	}
	if u.folder != "" {
		params["folder"] = u.folder
	}

	body, contentType, err := u.encode(attachment, params)
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.baseURL, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed uploadResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && parsed.Error != nil {
			return "", fmt.Errorf("upload rejected: status=%d message=%q", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("upload rejected: status=%d body=%q", resp.StatusCode, string(raw))
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode upload response: %w", decodeErr)
	}

	url := parsed.SecureURL
	if url == "" {
		url = parsed.URL
	}
	if url == "" {
		return "", fmt.Errorf("missing url in upload response body=%q", string(raw))
	}
	return url, nil
}

func (u *CloudinaryUploader) encode(attachment Attachment, params map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, val := range params {
		if err := w.WriteField(key, val); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("api_key", u.apiKey); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("signature", sign(params, u.apiSecret)); err != nil {
		return nil, "", err
	}

	name := attachment.FileName
	if name == "" {
		name = "attachment"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(attachment.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// sign builds the request signature: SHA-1 over the alphabetically sorted
// "key=value" pairs joined by "&", followed by the API secret.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
