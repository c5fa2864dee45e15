package fishaudio

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

// session owns one synthesis socket from the moment the request frames are
// on the wire until the chunk stream closes. Teardown is funneled through
// cleanup so the socket and safety timer are released exactly once no matter
// which of the read loop, the watchdog, or the caller fires first.
type session struct {
	ctx    context.Context
	conn   *websocket.Conn
	timer  *time.Timer
	chunks chan contracts.AudioChunk
	done   chan struct{}
	log    *zap.SugaredLogger

	once    sync.Once
	mu      sync.Mutex
	cause   error
	cleaned bool
}

func newSession(ctx context.Context, conn *websocket.Conn, timeout time.Duration, log *zap.SugaredLogger) *session {
	s := &session{
		ctx:    ctx,
		conn:   conn,
		timer:  time.NewTimer(timeout),
		chunks: make(chan contracts.AudioChunk, 8),
		done:   make(chan struct{}),
		log:    log,
	}
	go s.watchdog()
	return s
}

// cleanup records the first teardown cause, stops the safety timer, and
// closes the socket. Later calls with a different cause are no-ops.
func (s *session) cleanup(cause error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.cause = cause
		s.cleaned = true
		s.mu.Unlock()
		s.timer.Stop()
		_ = s.conn.Close()
	})
}

func (s *session) teardownCause() (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause, s.cleaned
}

// watchdog closes the socket when the caller cancels or the safety timer
// elapses, which unblocks the read loop in run.
func (s *session) watchdog() {
	select {
	case <-s.done:
	case <-s.ctx.Done():
		s.cleanup(s.ctx.Err())
	case <-s.timer.C:
		s.log.Warnw("tts synthesis safety timeout", "provider", ProviderID)
		s.cleanup(ErrSynthesisTimeout)
	}
}

// emit delivers one chunk unless the caller has already walked away.
func (s *session) emit(chunk contracts.AudioChunk) {
	select {
	case s.chunks <- chunk:
	case <-s.ctx.Done():
	}
}

// run is the socket read loop. It decodes server frames, forwards audio to
// the chunk stream, and closes the stream once the session reaches a
// terminal state. A stream that ends without an error chunk is a success.
func (s *session) run() {
	defer close(s.done)
	defer close(s.chunks)
	defer s.cleanup(nil)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			cause, cleaned := s.teardownCause()
			switch {
			case cleaned && cause == nil:
				// Finished normally before the read loop noticed.
			case cleaned && errors.Is(cause, context.Canceled):
				// Caller abandoned the stream. Nobody is listening.
			case cleaned && cause != nil:
				s.emit(contracts.AudioChunk{Err: cause})
			case isExpectedClose(err):
				// The backend hung up without a terminal event. Treat the
				// audio delivered so far as the complete utterance.
				s.log.Debugw("tts socket closed without terminal event", "provider", ProviderID)
			default:
				s.cleanup(err)
				s.emit(contracts.AudioChunk{Err: err})
			}
			return
		}

		frame, err := decodeServerFrame(raw)
		if err != nil {
			s.log.Warnw("tts frame decode failed", "provider", ProviderID, "error", err)
			s.cleanup(err)
			s.emit(contracts.AudioChunk{Err: err})
			return
		}

		switch frame.Event {
		case "audio":
			data, err := frame.audioBytes()
			if err != nil {
				s.log.Warnw("tts audio payload rejected", "provider", ProviderID, "error", err)
				s.cleanup(err)
				s.emit(contracts.AudioChunk{Err: err})
				return
			}
			if len(data) == 0 {
				continue
			}
			s.emit(contracts.AudioChunk{Data: data})
		case "finish", "stop":
			s.cleanup(nil)
			return
		default:
			// Log frames and other advisory events carry no audio.
		}
	}
}

func isExpectedClose(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
