// Package media stores message attachments with the ImageKit media service.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
)

const (
	defaultUploadURL = "https://upload.imagekit.io/api/v1/files/upload"
	uploadFolder     = "messages"
	imageTransform   = "tr=q-auto,f-webp,w-1280"
)

// Uploader stores raw attachment bytes and returns the reference URL to
// keep on the message.
type Uploader interface {
	Upload(ctx context.Context, file File) (models.Attachment, error)
}

type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type ImageKitConfig struct {
	PrivateKey  string
	URLEndpoint string
	UploadURL   string
	Timeout     time.Duration
}

type ImageKit struct {
	cfg    ImageKitConfig
	client *fasthttp.Client
}

func NewImageKit(cfg ImageKitConfig) *ImageKit {
	if cfg.UploadURL == "" {
		cfg.UploadURL = defaultUploadURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.URLEndpoint = strings.TrimRight(cfg.URLEndpoint, "/")
	return &ImageKit{cfg: cfg, client: &fasthttp.Client{Name: "bubtconnect"}}
}

type uploadResponse struct {
	FileID   string `json:"fileId"`
	FilePath string `json:"filePath"`
	Message  string `json:"message"`
}

func (ik *ImageKit) Upload(ctx context.Context, file File) (models.Attachment, error) {
	kind, ok := KindOf(file.ContentType)
	if !ok {
		return models.Attachment{}, apperr.New(apperr.KindInvalidInput, "Unsupported attachment type")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", file.Name)
	if err != nil {
		return models.Attachment{}, err
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return models.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	_ = form.WriteField("fileName", file.Name)
	_ = form.WriteField("folder", uploadFolder)
	if err := form.Close(); err != nil {
		return models.Attachment{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(ik.cfg.UploadURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(form.FormDataContentType())
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(ik.cfg.PrivateKey+":")))
	req.SetBody(body.Bytes())

	timeout := ik.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := ik.client.DoTimeout(req, resp, timeout); err != nil {
		return models.Attachment{}, apperr.Wrap(apperr.KindUpstreamFailure, "Media upload failed", err)
	}

	var out uploadResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return models.Attachment{}, apperr.Wrap(apperr.KindUpstreamFailure, "Media upload failed", err)
	}
	if resp.StatusCode() >= 300 || out.FilePath == "" {
		slog.Error("❌ ImageKit upload rejected", "status", resp.StatusCode(), "message", out.Message)
		return models.Attachment{}, apperr.Wrap(apperr.KindUpstreamFailure, "Media upload failed",
			fmt.Errorf("imagekit status %d: %s", resp.StatusCode(), out.Message))
	}

	slog.Debug("Attachment uploaded", "file_id", out.FileID, "kind", kind)
	return models.Attachment{Kind: kind, Reference: ik.URL(out.FilePath, kind)}, nil
}

// KindOf maps a MIME type to the message type of an attachment.
func KindOf(contentType string) (models.MessageType, bool) {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	mediaType = strings.TrimSpace(mediaType)
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return models.MessageTypeImage, true
	case strings.HasPrefix(mediaType, "audio/"):
		return models.MessageTypeAudio, true
	case mediaType == "application/pdf",
		mediaType == "text/plain",
		strings.HasPrefix(mediaType, "application/vnd.openxmlformats-officedocument."),
		mediaType == "application/msword":
		return models.MessageTypeDocument, true
	}
	return "", false
}

// URL builds the delivery URL for path. Images are served resized and
// re-encoded.
func (ik *ImageKit) URL(path string, kind models.MessageType) string {
	u := ik.cfg.URLEndpoint + "/" + strings.TrimLeft(path, "/")
	if kind == models.MessageTypeImage {
		u += "?" + imageTransform
	}
	return u
}
