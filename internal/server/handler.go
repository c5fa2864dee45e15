package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
	"github.com/tiger/voice-gateway/internal/tooling/validation"
)

// handleSpeech runs the full pipeline for one request: transcript
// resolution, streaming chat aggregation, then speech synthesis relayed as
// a chunked audio body. Failures before the first audio byte map to a
// status code; failures after it terminate the stream.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	log := s.log.With("request_id", reqID)
	w.Header().Set("X-Request-Id", reqID)

	req, err := parsePipelineRequest(r)
	if err != nil {
		log.Infow("request rejected", "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Turns) > 0 {
		log.Debugw("conversation history supplied", "turns", validation.RenderTurns(req.Turns))
	}

	transcript, ok := s.resolveTranscript(r.Context(), w, log, req)
	if !ok {
		return
	}

	answer, ok := s.resolveAnswer(r.Context(), w, log, transcript, req.Turns)
	if !ok {
		return
	}

	synthesizer, err := s.catalog.Synthesizer("")
	if err != nil {
		log.Errorw("no synthesizer available", "error", err)
		http.Error(w, "Server misconfigured", http.StatusInternalServerError)
		return
	}
	synthStart := time.Now()
	chunks, err := synthesizer.Synthesize(r.Context(), answer.Text)
	if err != nil {
		if errors.Is(err, contracts.ErrNotConfigured) {
			log.Errorw("synthesizer not configured", "provider", synthesizer.ProviderID())
			http.Error(w, "Server misconfigured", http.StatusInternalServerError)
			return
		}
		log.Errorw("synthesis failed to start", "provider", synthesizer.ProviderID(), "error", err)
		http.Error(w, "Upstream unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Transcript", url.QueryEscape(transcript))
	w.Header().Set("X-Response", url.QueryEscape(answer.Text))
	w.Header().Set("X-Conversation-Id", answer.ConversationID)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	var sent int
	for chunk := range chunks {
		if chunk.Err != nil {
			log.Errorw("synthesis stream failed",
				"provider", synthesizer.ProviderID(),
				"error", chunk.Err,
				"bytes_sent", sent)
			// The status line is already on the wire. Abort the connection
			// so the caller observes a truncated stream, not a clean end.
			panic(http.ErrAbortHandler)
		}
		if len(chunk.Data) == 0 {
			continue
		}
		if _, err := w.Write(chunk.Data); err != nil {
			log.Debugw("caller stopped reading", "error", err, "bytes_sent", sent)
			return
		}
		sent += len(chunk.Data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	log.Infow("pipeline complete",
		"bytes_sent", sent,
		"synthesis_ms", time.Since(synthStart).Milliseconds(),
		"conversation_id", answer.ConversationID)
}

// resolveTranscript returns the inline text untouched, or transcribes the
// audio blob. A false return means the response has been written.
func (s *Server) resolveTranscript(ctx context.Context, w http.ResponseWriter, log *zap.SugaredLogger, req pipelineRequest) (string, bool) {
	if req.Text != "" {
		return req.Text, true
	}

	transcriber, err := s.catalog.Transcriber("")
	if err != nil {
		log.Errorw("no transcriber available", "error", err)
		http.Error(w, "Server misconfigured", http.StatusInternalServerError)
		return "", false
	}
	start := time.Now()
	transcript, err := transcriber.Transcribe(ctx, req.Audio, req.AudioFilename)
	if err != nil {
		if errors.Is(err, contracts.ErrNotConfigured) {
			log.Errorw("transcriber not configured", "provider", transcriber.ProviderID())
			http.Error(w, "Server misconfigured", http.StatusInternalServerError)
			return "", false
		}
		log.Errorw("transcription failed", "provider", transcriber.ProviderID(), "error", err)
		http.Error(w, "Invalid audio", http.StatusBadRequest)
		return "", false
	}
	if transcript == "" {
		log.Infow("no usable transcript", "provider", transcriber.ProviderID())
		http.Error(w, "Invalid audio", http.StatusBadRequest)
		return "", false
	}
	log.Debugw("transcription complete",
		"provider", transcriber.ProviderID(),
		"transcribe_ms", time.Since(start).Milliseconds())
	return transcript, true
}

// resolveAnswer runs the streaming chat stage and requires a non-empty
// aggregated answer.
func (s *Server) resolveAnswer(ctx context.Context, w http.ResponseWriter, log *zap.SugaredLogger, query string, turns []contracts.Turn) (contracts.Answer, bool) {
	streamer, err := s.catalog.ChatStreamer("")
	if err != nil {
		log.Errorw("no chat streamer available", "error", err)
		http.Error(w, "Server misconfigured", http.StatusInternalServerError)
		return contracts.Answer{}, false
	}
	start := time.Now()
	answer, err := streamer.StreamAnswer(ctx, query, turns)
	if err != nil {
		if errors.Is(err, contracts.ErrNotConfigured) {
			log.Errorw("chat streamer not configured", "provider", streamer.ProviderID())
			http.Error(w, "Server misconfigured", http.StatusInternalServerError)
			return contracts.Answer{}, false
		}
		log.Errorw("chat request failed", "provider", streamer.ProviderID(), "error", err)
		http.Error(w, "Upstream unavailable", http.StatusInternalServerError)
		return contracts.Answer{}, false
	}
	if answer.Empty() {
		log.Errorw("chat backend produced no answer", "provider", streamer.ProviderID())
		http.Error(w, "Upstream unavailable", http.StatusInternalServerError)
		return contracts.Answer{}, false
	}
	log.Debugw("chat aggregation complete",
		"provider", streamer.ProviderID(),
		"completion_ms", time.Since(start).Milliseconds(),
		"answer_len", len(answer.Text))
	return answer, true
}
