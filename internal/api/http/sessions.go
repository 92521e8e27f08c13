package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/terminal"
	"github.com/GriffinCanCode/wsl-terminal/internal/shared/id"
)

// SpawnRequest is the body of POST /sessions.
type SpawnRequest struct {
	ID     string `json:"id"`
	Shell  string `json:"shell"`
	Distro string `json:"distro"`
	Cwd    string `json:"cwd"`
	Cols   int    `json:"cols" binding:"omitempty,min=1,max=1000"`
	Rows   int    `json:"rows" binding:"omitempty,min=1,max=1000"`
}

// WriteRequest is the body of POST /sessions/:id/write.
type WriteRequest struct {
	Data string `json:"data" binding:"required"`
}

// ResizeRequest is the body of POST /sessions/:id/resize.
type ResizeRequest struct {
	Cols int `json:"cols" binding:"required,min=1,max=1000"`
	Rows int `json:"rows" binding:"required,min=1,max=1000"`
}

// ListSessions lists live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns one session
func (h *Handlers) GetSession(c *gin.Context) {
	info, ok := h.manager.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("session not found"))
		return
	}
	c.JSON(http.StatusOK, info)
}

// Spawn starts a session. A missing id is generated.
func (h *Handlers) Spawn(c *gin.Context) {
	var req SpawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" {
		req.ID = id.NewTabID().String()
	}

	err := h.manager.Spawn(terminal.SpawnRequest{
		ID:     req.ID,
		Shell:  req.Shell,
		Distro: req.Distro,
		Cwd:    req.Cwd,
		Cols:   req.Cols,
		Rows:   req.Rows,
	})
	switch {
	case errors.Is(err, terminal.ErrSessionExists):
		respondError(c, http.StatusConflict, err)
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      req.ID,
	})
}

// Write sends input to a session
func (h *Handlers) Write(c *gin.Context) {
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.manager.Write(c.Param("id"), []byte(req.Data)); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Resize changes a session's terminal size
func (h *Handlers) Resize(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.manager.Resize(c.Param("id"), req.Cols, req.Rows); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Kill terminates a session
func (h *Handlers) Kill(c *gin.Context) {
	if err := h.manager.Kill(c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReadBuffer returns the retained output of a session as raw bytes,
// compressed with zstd or gzip when the client accepts it. Unknown ids yield
// an empty body.
func (h *Handlers) ReadBuffer(c *gin.Context) {
	data := h.manager.ReadBuffer(c.Param("id"))

	c.Header("Vary", "Accept-Encoding")
	encoding := negotiateEncoding(c.GetHeader("Accept-Encoding"))
	if encoding == "" || len(data) == 0 {
		c.Data(http.StatusOK, "application/octet-stream", data)
		return
	}

	var (
		compressed bytes.Buffer
		w          io.WriteCloser
		err        error
	)
	switch encoding {
	case "zstd":
		w, err = zstd.NewWriter(&compressed)
	default:
		w = gzip.NewWriter(&compressed)
	}
	if err == nil {
		if _, err = w.Write(data); err == nil {
			err = w.Close()
		}
	}
	if err != nil {
		c.Data(http.StatusOK, "application/octet-stream", data)
		return
	}

	c.Header("Content-Encoding", encoding)
	c.Data(http.StatusOK, "application/octet-stream", compressed.Bytes())
}

// negotiateEncoding picks zstd over gzip; "" means identity.
func negotiateEncoding(header string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.TrimSpace(name)
		if strings.ReplaceAll(strings.TrimSpace(params), " ", "") == "q=0" {
			continue
		}
		accepted[name] = true
	}
	for _, enc := range []string{"zstd", "gzip"} {
		if accepted[enc] {
			return enc
		}
	}
	return ""
}
