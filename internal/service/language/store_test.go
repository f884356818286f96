package language

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/service/stt"
)

type recordingMirror struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (m *recordingMirror) Save(ctx context.Context, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, lang)
	return m.err
}

func startStore(t *testing.T, initial string) *Store {
	t.Helper()
	s, err := NewStore(initial, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func TestNewStore_RejectsUnsupported(t *testing.T) {
	if _, err := NewStore("en", zerolog.Nop()); !errors.Is(err, stt.ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestStore_Set(t *testing.T) {
	s := startStore(t, "hi")
	mirror := &recordingMirror{}
	s.mirror = mirror
	ctx := context.Background()

	changed, err := s.Set(ctx, "ne")
	if err != nil || !changed {
		t.Fatalf("expected change, got %v, %v", changed, err)
	}
	if s.Current() != "ne" {
		t.Errorf("expected ne, got %s", s.Current())
	}

	changed, err = s.Set(ctx, "ne")
	if err != nil || changed {
		t.Errorf("expected no change for same language, got %v, %v", changed, err)
	}

	if len(mirror.saved) != 1 || mirror.saved[0] != "ne" {
		t.Errorf("expected one mirrored write, got %v", mirror.saved)
	}
}

func TestStore_SetUnsupported(t *testing.T) {
	s := startStore(t, "mai")

	_, err := s.Set(context.Background(), "fr")
	if !errors.Is(err, stt.ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if s.Current() != "mai" {
		t.Errorf("language must not change, got %s", s.Current())
	}
}

func TestStore_MirrorErrorDoesNotBlockChange(t *testing.T) {
	s := startStore(t, "hi")
	s.mirror = &recordingMirror{err: errors.New("redis down")}

	changed, err := s.Set(context.Background(), "mai")
	if err != nil || !changed || s.Current() != "mai" {
		t.Errorf("expected change despite mirror error, got %v, %v, %s", changed, err, s.Current())
	}
}

func TestStore_SetWithoutRunHonorsContext(t *testing.T) {
	s, _ := NewStore("hi", zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.Set(ctx, "ne"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := startStore(t, "hi")
	langs := []string{"hi", "ne", "mai"}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			if _, err := s.Set(context.Background(), lang); err != nil {
				t.Errorf("Set(%s): %v", lang, err)
			}
			_ = s.Current()
		}(langs[i%len(langs)])
	}
	wg.Wait()

	if !stt.IsSupported(s.Current()) {
		t.Errorf("store holds unsupported language %q", s.Current())
	}
}
