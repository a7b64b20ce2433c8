package httpapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	omnichat "github.com/Protocol-Lattice/omnichat"
	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/models"
	"github.com/Protocol-Lattice/omnichat/src/voice"
)

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type fileRequest struct {
	Name string `json:"name"`
	MIME string `json:"mime_type"`
	// Data is standard base64.
	Data string `json:"data"`
}

type messageRequest struct {
	Prompt string        `json:"prompt"`
	Files  []fileRequest `json:"files"`
	// Speak reads a successful text reply aloud.
	Speak bool `json:"speak"`
}

type providerRequest struct {
	Provider string `json:"provider" binding:"required"`
}

type speechRequest struct {
	Text string `json:"text" binding:"required"`
}

type sessionResponse struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

type healthResponse struct {
	Status         string   `json:"status"`
	Provider       string   `json:"provider"`
	ImageProvider  string   `json:"image_provider,omitempty"`
	ImageProviders []string `json:"image_providers,omitempty"`
	Busy           bool     `json:"busy"`
	Listeners      int      `json:"listeners"`
}

func abort(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:         "ok",
		Provider:       string(s.orch.Provider()),
		ImageProvider:  s.orch.ImageProvider(),
		ImageProviders: s.orch.ImageProviders(),
		Busy:           s.orch.Busy(),
		Listeners:      s.hub.Clients(),
	})
}

func (s *Server) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && len(req.Files) == 0 {
		abort(c, http.StatusBadRequest, "invalid_request", "prompt or files required")
		return
	}
	files, err := decodeFiles(req.Files)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	msg := s.orch.Reply(c.Request.Context(), req.Prompt, files)
	if req.Speak && msg.Error == nil && msg.Kind == omnichat.KindText {
		s.orch.TextToSpeech(msg.Content)
	}
	c.JSON(http.StatusOK, msg)
}

func decodeFiles(in []fileRequest) ([]models.File, error) {
	files := make([]models.File, 0, len(in))
	for i, f := range in {
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return nil, fmt.Errorf("files[%d]: data is not valid base64", i)
		}
		mime := f.MIME
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		files = append(files, models.NewFile(f.Name, mime, data))
	}
	return files, nil
}

func (s *Server) changeProvider(c *gin.Context) {
	var req providerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.orch.ChangeProvider(models.ProviderID(req.Provider)); err != nil {
		abort(c, http.StatusBadRequest, "unknown_provider", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": s.orch.Provider()})
}

func (s *Server) changeImageProvider(c *gin.Context) {
	var req providerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.orch.ChangeImageProvider(req.Provider); err != nil {
		if errors.Is(err, omnichat.ErrImagesDisabled) {
			abort(c, http.StatusNotImplemented, "disabled", err.Error())
			return
		}
		abort(c, http.StatusBadRequest, "unknown_provider", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": s.orch.ImageProvider()})
}

func (s *Server) speak(c *gin.Context) {
	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s.orch.TextToSpeech(req.Text)
	c.Status(http.StatusAccepted)
}

func (s *Server) startVoice(c *gin.Context) {
	ready := make(chan *voice.Session, 1)
	sess, err := s.orch.StartVoiceRecording(s.base, func(text string) {
		s.transcribed(<-ready, text)
	})
	if err != nil {
		status, kind := voiceStatus(err)
		abort(c, status, kind, apierr.Normalize(err, "microphone").Message)
		return
	}
	ready <- sess
	s.hub.Broadcast(Event{Type: EventRecording, SessionID: sess.ID()})
	go s.watch(sess)
	c.JSON(http.StatusAccepted, sessionResponse{ID: sess.ID(), State: sess.State().String()})
}

func (s *Server) stopVoice(c *gin.Context) {
	sess := s.orch.StopVoiceRecording()
	if sess == nil {
		abort(c, http.StatusNotFound, "no_session", "no voice session")
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		ID:     sess.ID(),
		State:  sess.State().String(),
		Reason: string(sess.Reason()),
	})
}

func (s *Server) voiceEvents(c *gin.Context) {
	if err := s.hub.Serve(c.Writer, c.Request); err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
	}
}

// transcribed publishes a transcript and, when enabled, the reply to it.
func (s *Server) transcribed(sess *voice.Session, text string) {
	s.hub.Broadcast(Event{Type: EventTranscript, SessionID: sess.ID(), Text: text})
	if !s.autoReply || strings.TrimSpace(text) == "" {
		return
	}
	msg := s.orch.Reply(s.base, text, nil)
	s.hub.Broadcast(Event{Type: EventReply, SessionID: sess.ID(), Message: &msg})
}

func (s *Server) watch(sess *voice.Session) {
	select {
	case <-sess.Done():
		s.hub.Broadcast(Event{Type: EventStopped, SessionID: sess.ID(), Reason: string(sess.Reason())})
	case <-s.base.Done():
	}
}

func voiceStatus(err error) (int, string) {
	switch {
	case errors.Is(err, voice.ErrSessionActive):
		return http.StatusConflict, "session_active"
	case errors.Is(err, omnichat.ErrVoiceDisabled):
		return http.StatusNotImplemented, "disabled"
	}
	if apierr.KindOf(err) == apierr.KindDeviceUnavailable {
		return http.StatusServiceUnavailable, string(apierr.KindDeviceUnavailable)
	}
	return http.StatusInternalServerError, string(apierr.KindOf(err))
}
