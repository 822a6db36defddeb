// Package cartesia implements speech synthesis against Cartesia's bytes
// endpoint. Responses are raw PCM chunked into 10ms frames as they
// arrive, so the first frame on the channel reflects the service's time
// to first byte.
package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/echolabs-dev/voicelat/pkg/ai"
	"github.com/echolabs-dev/voicelat/pkg/ai/tts"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

const (
	defaultEndpoint = "https://api.cartesia.ai/tts/bytes"
	apiVersion      = "2024-06-10"

	defaultModel = "sonic-2"
	defaultVoice = "f786b574-daa5-4673-aa0c-cbe3e8534c02"

	sampleRate = 48000
)

// TTS is a Cartesia speech-synthesis provider.
type TTS struct {
	apiKey   string
	model    string
	voice    string
	endpoint string
	client   *http.Client
}

// Config holds Cartesia provider configuration.
type Config struct {
	APIKey   string
	Model    string // default: sonic-2
	Voice    string // default voice id
	Endpoint string // override for tests
	Client   *http.Client
}

// New creates a Cartesia TTS provider.
func New(cfg Config) (*TTS, error) {
	if cfg.APIKey == "" {
		return nil, ai.NewFatalError(fmt.Errorf("missing API key"), "Cartesia API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TTS{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		voice:    cfg.Voice,
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
	}, nil
}

func (c *TTS) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Streaming:          true,
		SupportedLanguages: []string{"en", "es", "fr", "de", "pt", "zh", "ja"},
		SupportedVoices:    []string{defaultVoice},
		SampleRates:        []int{sampleRate},
	}
}

// request is the bytes-endpoint payload.
type request struct {
	ModelID    string `json:"model_id"`
	Transcript string `json:"transcript"`
	Voice      struct {
		Mode string `json:"mode"`
		ID   string `json:"id"`
	} `json:"voice"`
	OutputFormat struct {
		Container  string `json:"container"`
		Encoding   string `json:"encoding"`
		SampleRate int    `json:"sample_rate"`
	} `json:"output_format"`
}

// Synthesize posts the transcript and streams the PCM response body as
// 10ms frames. The returned channel closes when the body ends or the
// context is cancelled.
func (c *TTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (<-chan rtc.AudioFrame, error) {
	voice := req.Voice
	if voice == "" || voice == "default" {
		voice = c.voice
	}

	payload := request{ModelID: c.model, Transcript: req.Text}
	payload.Voice.Mode = "id"
	payload.Voice.ID = voice
	payload.OutputFormat.Container = "raw"
	payload.OutputFormat.Encoding = "pcm_s16le"
	payload.OutputFormat.SampleRate = sampleRate

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Cartesia-Version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ai.NewRecoverableError(err, "Cartesia request failed")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("cartesia returned status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, ai.NewFatalError(err, "Cartesia rejected credentials")
		}
		return nil, ai.NewRecoverableError(err, "Cartesia synthesis failed")
	}

	out := make(chan rtc.AudioFrame, 32)
	go c.streamFrames(ctx, resp.Body, out)
	return out, nil
}

// streamFrames chunks the PCM body into frames. A short trailing chunk is
// zero-padded to a full frame.
func (c *TTS) streamFrames(ctx context.Context, body io.ReadCloser, out chan<- rtc.AudioFrame) {
	defer close(out)
	defer body.Close()

	frameBytes := (sampleRate / 100) * 2 // mono 16-bit, 10ms
	buf := make([]byte, frameBytes)
	var offset time.Duration

	for {
		n, err := io.ReadFull(body, buf)
		if n > 0 {
			data := make([]byte, frameBytes)
			copy(data, buf[:n])
			frame := rtc.AudioFrame{
				Data:              data,
				SampleRate:        sampleRate,
				SamplesPerChannel: sampleRate / 100,
				NumChannels:       1,
				Timestamp:         offset,
			}
			offset += frame.Duration()

			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
