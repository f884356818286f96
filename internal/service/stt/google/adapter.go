// Package google provides a Google Cloud Speech-to-Text model.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"indic-speech-stream-service/internal/service/alignment"
	"indic-speech-stream-service/internal/service/audio"
	"indic-speech-stream-service/internal/service/stt"
)

// Config holds Google recognition settings.
type Config struct {
	SampleRateHz int32
	Model        string            // recognition model, e.g. "latest_long"
	Punctuation  bool              // enable automatic punctuation
	LanguageTags map[string]string // service language code -> BCP-47 tag
}

// DefaultConfig returns settings for 16 kHz LINEAR16 input.
func DefaultConfig() Config {
	return Config{
		SampleRateHz: audio.SampleRate,
		Model:        "latest_long",
		Punctuation:  true,
		LanguageTags: map[string]string{
			"hi": "hi-IN",
			"ne": "ne-NP",
		},
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Adapter implements stt.Model using synchronous recognition per window.
type Adapter struct {
	client    *speech.Client
	recognize recognizeFunc
	cfg       Config
}

// New creates a Google STT model.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client: c,
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return c.Recognize(ctx, req)
		},
		cfg: cfg,
	}, nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Infer implements stt.Model.
func (a *Adapter) Infer(ctx context.Context, waveform []float32, language string, wantWords bool) (stt.Result, error) {
	tag, ok := a.cfg.LanguageTags[language]
	if !ok {
		return stt.Result{}, fmt.Errorf("%w: %q has no Google language tag", stt.ErrUnsupportedLanguage, language)
	}

	resp, err := a.recognize(ctx, a.buildRequest(waveform, tag, wantWords))
	if err != nil {
		return stt.Result{}, fmt.Errorf("google recognize: %w", err)
	}
	return toResult(resp), nil
}

func (a *Adapter) buildRequest(waveform []float32, tag string, wantWords bool) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            a.cfg.SampleRateHz,
			LanguageCode:               tag,
			Model:                      a.cfg.Model,
			EnableAutomaticPunctuation: a.cfg.Punctuation,
			EnableWordTimeOffsets:      wantWords,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audio.Float32ToPCM16(waveform),
			},
		},
	}
}

// toResult joins the top alternative of every result.
func toResult(resp *speechpb.RecognizeResponse) stt.Result {
	var (
		parts []string
		words []alignment.Word
	)
	for _, r := range resp.GetResults() {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			parts = append(parts, t)
		}
		for _, w := range alt.Words {
			words = append(words, alignment.Word{
				Text:  w.Word,
				Start: seconds(w.StartTime),
				End:   seconds(w.EndTime),
			})
		}
	}
	return stt.Result{Text: strings.Join(parts, " "), Words: words}
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
