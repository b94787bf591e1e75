// Package generate holds the mock generation handlers that stand in for
// the GPU services (LivePortrait/SadTalker for video, SDXL for posters,
// RVC for voice). Production deployments register handlers that call the
// real endpoints instead; the worker contract is the same either way.
package generate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"genq/internal/worker"
)

var sampleVideos = []string{
	"https://assets.example.com/mock/sample_video_1.mp4",
	"https://assets.example.com/mock/sample_video_2.mp4",
	"https://assets.example.com/mock/sample_video_3.mp4",
}

var sampleThumbnails = []string{
	"https://assets.example.com/mock/thumb_1.jpg",
	"https://assets.example.com/mock/thumb_2.jpg",
	"https://assets.example.com/mock/thumb_3.jpg",
}

var samplePosters = []string{
	"https://assets.example.com/mock/poster_1.jpg",
	"https://assets.example.com/mock/poster_2.jpg",
}

var sampleAudio = []string{
	"https://assets.example.com/mock/voice_1.mp3",
	"https://assets.example.com/mock/voice_2.mp3",
}

// wait sleeps for one simulated pipeline stage, honoring cancellation.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func durationSeconds(payload map[string]any) int {
	if d, ok := payload["duration_seconds"].(float64); ok && d > 0 {
		return int(d)
	}
	return 15
}

// Video simulates the greeting-video pipeline: TTS, face animation,
// post-processing. stageDelay scales the whole pipeline so tests run in
// milliseconds while a dev deployment can approximate real latency.
func Video(stageDelay time.Duration) worker.HandlerFunc {
	return func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		start := time.Now()
		for _, stage := range []string{"tts", "animation", "postprocess"} {
			if err := wait(ctx, stageDelay); err != nil {
				return nil, fmt.Errorf("video %s stage: %w", stage, err)
			}
		}
		i := rand.IntN(len(sampleVideos))
		return map[string]any{
			"video_url":          sampleVideos[i],
			"thumbnail_url":      sampleThumbnails[i],
			"duration_seconds":   durationSeconds(payload),
			"processing_time_ms": time.Since(start).Milliseconds(),
		}, nil
	}
}

// Poster simulates poster generation (single render stage).
func Poster(stageDelay time.Duration) worker.HandlerFunc {
	return func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		start := time.Now()
		if err := wait(ctx, stageDelay); err != nil {
			return nil, fmt.Errorf("poster render stage: %w", err)
		}
		return map[string]any{
			"poster_url":         samplePosters[rand.IntN(len(samplePosters))],
			"processing_time_ms": time.Since(start).Milliseconds(),
		}, nil
	}
}

// Voice simulates voice-message generation (synthesis + conversion).
func Voice(stageDelay time.Duration) worker.HandlerFunc {
	return func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		start := time.Now()
		for _, stage := range []string{"synthesis", "conversion"} {
			if err := wait(ctx, stageDelay); err != nil {
				return nil, fmt.Errorf("voice %s stage: %w", stage, err)
			}
		}
		return map[string]any{
			"audio_url":          sampleAudio[rand.IntN(len(sampleAudio))],
			"duration_seconds":   durationSeconds(payload),
			"processing_time_ms": time.Since(start).Milliseconds(),
		}, nil
	}
}
