package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"chemi/internal/agent"
	"chemi/internal/domain"
)

// queryRequest is the /query body. At least one of text and image_base64 must
// be set.
type queryRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64"`
	ThreadID    string `json:"thread_id"`
}

type queryResponse struct {
	Success      bool         `json:"success"`
	ThreadID     string       `json:"thread_id,omitempty"`
	TextResponse string       `json:"text_response,omitempty"`
	ImageBase64  string       `json:"image_base64,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	AudioBase64  string       `json:"audio_base64,omitempty"`
	AudioURL     string       `json:"audio_url,omitempty"`
	QuizData     *domain.Quiz `json:"quiz_data,omitempty"`
	Error        string       `json:"error,omitempty"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{Error: "invalid request body"})
	}
	if req.Text == "" && req.ImageBase64 == "" {
		return c.JSON(http.StatusBadRequest, queryResponse{Error: "text or image_base64 is required"})
	}

	var image []byte
	var imageMIME string
	if req.ImageBase64 != "" {
		var err error
		image, imageMIME, err = decodeImage(req.ImageBase64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, queryResponse{Error: "image_base64 is not valid base64"})
		}
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	ans, err := s.agent.Handle(c.Request().Context(), agent.Query{
		Text:      req.Text,
		Image:     image,
		ImageMIME: imageMIME,
		ThreadID:  threadID,
	})
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuery) {
			return c.JSON(http.StatusBadRequest, queryResponse{Error: err.Error()})
		}
		s.log.Error("query failed", zap.String("thread", threadID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, queryResponse{
			ThreadID: threadID,
			Error:    "internal error, please try again",
		})
	}

	resp := queryResponse{
		Success:      true,
		ThreadID:     threadID,
		TextResponse: ans.Text,
		QuizData:     ans.Quiz,
	}
	resp.ImageURL, resp.ImageBase64 = encodeAsset(ans.ImageURL, s.log)
	resp.AudioURL, resp.AudioBase64 = encodeAsset(ans.AudioURL, s.log)
	return c.JSON(http.StatusOK, resp)
}

// decodeImage accepts raw base64 or a data URI and returns bytes plus MIME.
func decodeImage(s string) ([]byte, string, error) {
	mime := ""
	if strings.HasPrefix(s, "data:") {
		rest := strings.TrimPrefix(s, "data:")
		if i := strings.Index(rest, ";base64,"); i >= 0 {
			mime = rest[:i]
			s = rest[i+len(";base64,"):]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// encodeAsset splits an answer asset into a passthrough URL or inline base64.
// Remote URLs go out as-is; local files are read and inlined so the client
// never sees server paths.
func encodeAsset(ref string, log *zap.Logger) (url, b64 string) {
	if ref == "" {
		return "", ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, ""
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		log.Warn("asset file unreadable", zap.String("path", ref), zap.Error(err))
		return "", ""
	}
	return "", base64.StdEncoding.EncodeToString(data)
}
