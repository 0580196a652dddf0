package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"dictate/encoder"
	"dictate/log"
)

const (
	DefaultCloudURL     = "https://api.openai.com/v1/audio/transcriptions"
	DefaultCloudModel   = "whisper-1"
	DefaultCloudTimeout = 30 * time.Second
)

type CloudConfig struct {
	APIKey  string
	URL     string
	Model   string
	Format  encoder.Format
	Timeout time.Duration
}

// Cloud uploads the recording to an OpenAI-compatible transcription
// endpoint and asks for a plain-text response.
type Cloud struct {
	cfg    CloudConfig
	client *TracedClient
	encode func(encoder.Format, []float32, int) ([]byte, error)
}

func NewCloud(cfg CloudConfig) (*Cloud, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoCredential
	}
	if cfg.URL == "" {
		cfg.URL = DefaultCloudURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCloudModel
	}
	if cfg.Format == "" {
		cfg.Format = encoder.FormatWAV
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCloudTimeout
	}
	return &Cloud{cfg: cfg, client: NewTracedClient(cfg.Timeout), encode: encoder.Encode}, nil
}

func (c *Cloud) Kind() Kind { return KindCloud }
func (c *Cloud) sealed()    {}

func (c *Cloud) Warm() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if d := c.client.Warm(ctx, c.cfg.URL); d > 0 {
		log.Infof("cloud connection warmed, tls %dms", d.Milliseconds())
	}
}

func (c *Cloud) Transcribe(ctx context.Context, req Request) (Result, error) {
	if len(req.Samples) == 0 {
		return Result{}, nil
	}
	start := time.Now()

	audio, err := c.encode(c.cfg.Format, req.Samples, req.SampleRate)
	if err != nil {
		return Result{}, &Error{Kind: ProcessFailure, Err: fmt.Errorf("encode: %w", err)}
	}
	encodeTime := time.Since(start)

	var body bytes.Buffer
	contentType, err := c.writeForm(&body, audio, req.Language)
	if err != nil {
		return Result{}, &Error{Kind: ProcessFailure, Err: fmt.Errorf("build form: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return Result{}, &Error{Kind: NetworkFailure, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return Result{}, &Error{Kind: Timeout, Err: err}
		}
		return Result{}, &Error{Kind: NetworkFailure, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{
			Kind:   BadResponse,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
			Detail: truncate(strings.TrimSpace(string(resp.Body)), 512),
		}
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	if remaining != "?" || limit != "?" {
		log.Infof("cloud rate limit %s/%s", remaining, limit)
	}

	return Result{
		Text:       strings.TrimSpace(string(resp.Body)),
		Duration:   time.Since(start),
		EncodeTime: encodeTime,
		UploadSize: len(audio),
		Metrics:    resp.Metrics,
	}, nil
}

// writeForm writes the multipart upload to w and returns its content type.
func (c *Cloud) writeForm(w io.Writer, audio []byte, language string) (string, error) {
	writer := multipart.NewWriter(w)
	part, err := writer.CreateFormFile("file", "audio."+string(c.cfg.Format))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	fields := [][2]string{{"model", c.cfg.Model}, {"response_format", "text"}}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return writer.FormDataContentType(), nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
