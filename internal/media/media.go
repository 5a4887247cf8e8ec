// Package media turns an uploaded voice note into a generated image:
// transcription, prompt drafting, then image generation, with an optional
// archive to the object store.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookwise/bookwise/internal/storage"
)

// ErrArchiveDisabled is returned by Archived when no object store is wired.
var ErrArchiveDisabled = errors.New("media archive is not enabled")

// archiveFiles lists the files written per pipeline run and read back by
// Archived. The order fixes the order of Result.ArchiveKeys.
var archiveFiles = []struct {
	name        string
	contentType string
}{
	{"image.png", "image/png"},
	{"transcript.txt", "text/plain; charset=utf-8"},
	{"prompt.txt", "text/plain; charset=utf-8"},
}

type Config struct {
	BaseURL            string
	APIKey             string
	TranscriptionModel string
	PromptModel        string
	ImageModel         string
	ImageSize          string
	Timeout            time.Duration
}

type Result struct {
	ID          string   `json:"id"`
	Transcript  string   `json:"transcript"`
	Prompt      string   `json:"prompt"`
	ImageB64    string   `json:"image_b64"`
	ArchiveKeys []string `json:"archive_keys,omitempty"`
}

type Pipeline struct {
	baseURL            string
	apiKey             string
	transcriptionModel string
	promptModel        string
	imageModel         string
	imageSize          string
	client             *http.Client
	archive            storage.ObjectStore
	logger             *slog.Logger
	newID              func() string
}

// NewPipeline builds the pipeline. archive may be nil, which disables the
// archival step entirely.
func NewPipeline(cfg Config, archive storage.ObjectStore, logger *slog.Logger) (*Pipeline, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	transcriptionModel := strings.TrimSpace(cfg.TranscriptionModel)
	if transcriptionModel == "" {
		transcriptionModel = "whisper-1"
	}
	promptModel := strings.TrimSpace(cfg.PromptModel)
	if promptModel == "" {
		promptModel = "gpt-4o-mini"
	}
	imageModel := strings.TrimSpace(cfg.ImageModel)
	if imageModel == "" {
		imageModel = "gpt-image-1"
	}
	imageSize := strings.TrimSpace(cfg.ImageSize)
	if imageSize == "" {
		imageSize = "1024x1024"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Pipeline{
		baseURL:            strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		transcriptionModel: transcriptionModel,
		promptModel:        promptModel,
		imageModel:         imageModel,
		imageSize:          imageSize,
		client:             &http.Client{Timeout: timeout},
		archive:            archive,
		logger:             logger,
		newID:              uuid.NewString,
	}, nil
}

// VoiceToImage runs the full pipeline. A failing archive step is logged and
// never fails the request; the caller still gets the generated image.
func (p *Pipeline) VoiceToImage(ctx context.Context, audio io.Reader, filename string) (Result, error) {
	transcript, err := p.transcribe(ctx, audio, filename)
	if err != nil {
		return Result{}, err
	}
	prompt, err := p.draftPrompt(ctx, transcript)
	if err != nil {
		return Result{}, err
	}
	imageB64, err := p.generateImage(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		ID:         p.newID(),
		Transcript: transcript,
		Prompt:     prompt,
		ImageB64:   imageB64,
	}
	if p.archive != nil {
		result.ArchiveKeys = p.archiveResult(ctx, result)
	}
	return result, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "voice.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio into form: %w", err)
	}
	if err := writer.WriteField("model", p.transcriptionModel); err != nil {
		return "", fmt.Errorf("write transcription model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close transcription form: %w", err)
	}

	raw, err := p.post(ctx, "/v1/audio/transcriptions", writer.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("transcription returned empty text")
	}
	return parsed.Text, nil
}

const promptSystem = "You turn a spoken description into a single vivid image generation prompt. " +
	"Respond with the prompt only, no preamble."

func (p *Pipeline) draftPrompt(ctx context.Context, transcript string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model": p.promptModel,
		"messages": []map[string]string{
			{"role": "system", "content": promptSystem},
			{"role": "user", "content": transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal prompt payload: %w", err)
	}

	raw, err := p.post(ctx, "/v1/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode prompt response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("prompt drafting returned no content")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (p *Pipeline) generateImage(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":           p.imageModel,
		"prompt":          prompt,
		"size":            p.imageSize,
		"response_format": "b64_json",
	})
	if err != nil {
		return "", fmt.Errorf("marshal image payload: %w", err)
	}

	raw, err := p.post(ctx, "/v1/images/generations", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return "", fmt.Errorf("image generation returned no data")
	}
	return parsed.Data[0].B64JSON, nil
}

// Archived streams one file of a previously archived pipeline run. Unknown
// file names and malformed ids read as missing objects.
func (p *Pipeline) Archived(ctx context.Context, id, name string) (io.ReadCloser, string, error) {
	if p.archive == nil {
		return nil, "", ErrArchiveDisabled
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/\\") {
		return nil, "", fmt.Errorf("archive id %q: %w", id, storage.ErrObjectNotFound)
	}
	contentType := ""
	for _, file := range archiveFiles {
		if file.name == name {
			contentType = file.contentType
			break
		}
	}
	if contentType == "" {
		return nil, "", fmt.Errorf("archive file %q: %w", name, storage.ErrObjectNotFound)
	}
	reader, err := p.archive.Get(ctx, id+"/"+name)
	if err != nil {
		return nil, "", err
	}
	return reader, contentType, nil
}

func (p *Pipeline) archiveResult(ctx context.Context, result Result) []string {
	imageBytes, err := base64.StdEncoding.DecodeString(result.ImageB64)
	if err != nil {
		p.logger.Warn("skipping archive, image payload is not valid base64", "error", err)
		return nil
	}

	payloads := map[string][]byte{
		"image.png":      imageBytes,
		"transcript.txt": []byte(result.Transcript),
		"prompt.txt":     []byte(result.Prompt),
	}

	keys := make([]string, 0, len(archiveFiles))
	for _, file := range archiveFiles {
		data := payloads[file.name]
		key := result.ID + "/" + file.name
		info, err := p.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: file.contentType})
		if err != nil {
			p.logger.Warn("archive write failed", "key", key, "error", err)
			continue
		}
		keys = append(keys, info.Key)
	}
	return keys
}

func (p *Pipeline) post(ctx context.Context, endpoint, contentType string, body io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", endpoint, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body %s: %w", endpoint, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s failed status=%d body=%s", endpoint, resp.StatusCode, string(raw))
	}
	return raw, nil
}
