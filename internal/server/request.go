package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
	"github.com/tiger/voice-gateway/internal/tooling/validation"
)

// maxRequestBytes bounds the multipart form held in memory.
const maxRequestBytes = 32 << 20

// pipelineRequest is the parsed multipart payload. Exactly one of Text or
// Audio is set.
type pipelineRequest struct {
	Text          string
	Audio         []byte
	AudioFilename string
	Turns         []contracts.Turn
}

// parsePipelineRequest reads the multipart form. The "input" part carries
// either inline text (value part) or an audio blob (file part); repeated
// "message" parts carry prior conversation turns as JSON.
func parsePipelineRequest(r *http.Request) (pipelineRequest, error) {
	if err := r.ParseMultipartForm(maxRequestBytes); err != nil {
		return pipelineRequest{}, fmt.Errorf("parse multipart form: %w", err)
	}

	var req pipelineRequest

	if files := r.MultipartForm.File["input"]; len(files) > 0 {
		header := files[0]
		file, err := header.Open()
		if err != nil {
			return pipelineRequest{}, fmt.Errorf("open audio part: %w", err)
		}
		defer file.Close()
		audio, err := io.ReadAll(file)
		if err != nil {
			return pipelineRequest{}, fmt.Errorf("read audio part: %w", err)
		}
		if len(audio) == 0 {
			return pipelineRequest{}, fmt.Errorf("audio part is empty")
		}
		req.Audio = audio
		req.AudioFilename = header.Filename
		if req.AudioFilename == "" {
			req.AudioFilename = "audio.webm"
		}
	} else if values := r.MultipartForm.Value["input"]; len(values) > 0 && values[0] != "" {
		req.Text = values[0]
	} else {
		return pipelineRequest{}, fmt.Errorf("input part is required")
	}

	rawTurns := r.MultipartForm.Value["message"]
	if len(rawTurns) > 0 {
		payloads := make([][]byte, 0, len(rawTurns))
		for _, raw := range rawTurns {
			payloads = append(payloads, []byte(raw))
		}
		turns, err := validation.ParseTurns(payloads)
		if err != nil {
			return pipelineRequest{}, err
		}
		req.Turns = turns
	}

	return req, nil
}
