package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"checkin-calls/internal/calls"
)

type fakeBackend struct {
	calls   atomic.Int32
	release chan struct{}
	audio   []byte
	err     error
}

func (f *fakeBackend) Synthesize(ctx context.Context, text string, voice calls.Voice) ([]byte, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func TestSynthesize_CachesResult(t *testing.T) {
	be := &fakeBackend{audio: []byte("mp3")}
	s := NewSynthesizer(NewCache(CacheConfig{}), be, SynthesizerConfig{BaseURL: "https://example.test/"})

	url, err := s.Synthesize(context.Background(), "Hello Ada", calls.VoiceNova)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.test/audio/cached/" + Key("Hello Ada", calls.VoiceNova)
	if url != want {
		t.Fatalf("expected %q, got %q", want, url)
	}

	if _, err := s.Synthesize(context.Background(), "Hello Ada", calls.VoiceNova); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := be.calls.Load(); n != 1 {
		t.Fatalf("expected one backend call, got %d", n)
	}
}

func TestSynthesize_CoalescesConcurrentMisses(t *testing.T) {
	be := &fakeBackend{audio: []byte("mp3"), release: make(chan struct{})}
	s := NewSynthesizer(NewCache(CacheConfig{}), be, SynthesizerConfig{BaseURL: "https://example.test"})

	const n = 8
	var wg sync.WaitGroup
	urls := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			urls[i], errs[i] = s.Synthesize(context.Background(), "How are you feeling today?", calls.VoiceShimmer)
		}(i)
	}

	// Let the leader start before releasing it.
	deadline := time.Now().Add(time.Second)
	for be.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(be.release)
	wg.Wait()

	if got := be.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one backend call, got %d", got)
	}
	for i := range urls {
		if errs[i] != nil || urls[i] != urls[0] {
			t.Fatalf("caller %d: url=%q err=%v", i, urls[i], errs[i])
		}
	}
}

func TestSynthesize_FailureIsNotCached(t *testing.T) {
	be := &fakeBackend{err: errors.New("boom")}
	s := NewSynthesizer(NewCache(CacheConfig{}), be, SynthesizerConfig{})

	if _, err := s.Synthesize(context.Background(), "hi", calls.VoiceNova); err == nil {
		t.Fatalf("expected error")
	}
	be.err = nil
	be.audio = []byte("ok")
	if _, err := s.Synthesize(context.Background(), "hi", calls.VoiceNova); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if n := be.calls.Load(); n != 2 {
		t.Fatalf("expected two backend calls, got %d", n)
	}
}

func TestSynthesize_EmptyAudioAndText(t *testing.T) {
	s := NewSynthesizer(NewCache(CacheConfig{}), &fakeBackend{}, SynthesizerConfig{})
	if _, err := s.Synthesize(context.Background(), "hi", calls.VoiceNova); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
	if _, err := s.Synthesize(context.Background(), "  ", calls.VoiceNova); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestSynthesize_CallerCancellation(t *testing.T) {
	be := &fakeBackend{audio: []byte("mp3"), release: make(chan struct{})}
	cache := NewCache(CacheConfig{})
	s := NewSynthesizer(cache, be, SynthesizerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Synthesize(ctx, "hi", calls.VoiceNova); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The detached generation still completes and fills the cache.
	close(be.release)
	deadline := time.Now().Add(time.Second)
	for cache.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, ok := cache.Get("hi", calls.VoiceNova); !ok {
		t.Fatalf("expected generation to finish after caller left")
	}
}

func TestEstimateCost(t *testing.T) {
	if got := EstimateCost(1000); got != 0.015 {
		t.Fatalf("expected 0.015, got %v", got)
	}
	if !strings.HasPrefix(Key("a", calls.VoiceEcho), "audio_echo_") {
		t.Fatalf("unexpected key")
	}
}
