package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"baitboard/internal/calls"
	"baitboard/internal/social"
)

// --- Calls CRUD ---

func (h Handlers) ListCalls(c *gin.Context) {
	f := calls.ListFilter{
		Status:    calls.CallStatus(c.Query("status")),
		PersonaID: c.Query("persona"),
		Tag:       c.Query("tag"),
		Search:    c.Query("q"),
	}
	var err error
	if f.Public, err = boolQuery(c, "public"); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "public must be a boolean"})
		return
	}
	if f.Featured, err = boolQuery(c, "featured"); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "featured must be a boolean"})
		return
	}
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "limit must be an integer"})
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "offset must be an integer"})
		return
	}

	rows, total, err := h.Calls.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	if rows == nil {
		rows = []calls.Call{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows, "total": total})
}

func (h Handlers) GetCall(c *gin.Context) {
	call, segments, err := h.Calls.GetWithSegments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	if segments == nil {
		segments = []calls.CallSegment{}
	}
	c.JSON(http.StatusOK, gin.H{"call": call, "segments": segments})
}

type patchCallRequest struct {
	Title     *string  `json:"title"`
	Notes     *string  `json:"notes"`
	Rating    *int     `json:"rating"`
	Tags      []string `json:"tags"`
	Public    *bool    `json:"public"`
	Featured  *bool    `json:"featured"`
	PersonaID *string  `json:"personaId"`
}

func (h Handlers) PatchCall(c *gin.Context) {
	var req patchCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "invalid json"})
		return
	}
	actor, ip := actorFromContext(c)
	call, err := h.Calls.Annotate(c.Request.Context(), c.Param("id"), calls.AnnotationUpdate{
		Title:     req.Title,
		Notes:     req.Notes,
		Rating:    req.Rating,
		Tags:      req.Tags,
		Public:    req.Public,
		Featured:  req.Featured,
		PersonaID: req.PersonaID,
	}, actor, ip)
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}

func (h Handlers) DeleteCall(c *gin.Context) {
	actor, ip := actorFromContext(c)
	if err := h.Calls.Delete(c.Request.Context(), c.Param("id"), actor, ip); err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Transcript ingest ---

type segmentRequest struct {
	Speaker       string `json:"speaker"`
	Text          string `json:"text"`
	OffsetSeconds int    `json:"offsetSeconds"`
}

// IngestSegments appends transcript segments pushed by the voice agent.
func (h Handlers) IngestSegments(c *gin.Context) {
	var req struct {
		Segments []segmentRequest `json:"segments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "invalid json"})
		return
	}
	if len(req.Segments) == 0 {
		respondError(c, h.Env, ValidationError{Msg: "segments required"})
		return
	}
	in := make([]calls.SegmentInput, len(req.Segments))
	for i, s := range req.Segments {
		in[i] = calls.SegmentInput{
			Speaker:       calls.Speaker(s.Speaker),
			Text:          s.Text,
			OffsetSeconds: s.OffsetSeconds,
		}
	}
	segments, err := h.Calls.IngestSegments(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"segments": segments})
}

// --- Stats ---

func (h Handlers) DashboardStats(c *gin.Context) {
	stats, err := h.Stats.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h Handlers) Leaderboard(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		respondError(c, h.Env, ValidationError{Msg: "limit must be an integer"})
		return
	}
	board, err := h.Stats.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// --- Share cards ---

// ShareCard renders a social card for the call, uploads it, and returns the
// public URL. Nothing is persisted on the call itself.
func (h Handlers) ShareCard(c *gin.Context) {
	if h.Uploads == nil {
		respondError(c, h.Env, ExternalServiceError{Service: "storage", Err: errors.New("not configured")})
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Env, err)
		return
	}

	duration := 0
	if call.DurationSeconds != nil {
		duration = *call.DurationSeconds
	}
	png, err := h.Cards.Render(social.Card{
		Title:           call.Title,
		DurationSeconds: duration,
		PersonaName:     h.personaName(call.PersonaID),
		SiteName:        h.SiteName,
	})
	if err != nil {
		respondError(c, h.Env, err)
		return
	}

	key := fmt.Sprintf("cards/%s.png", call.ID)
	url, err := h.Uploads.Upload(c.Request.Context(), key, "image/png", bytes.NewReader(png))
	if err != nil {
		respondError(c, h.Env, ExternalServiceError{Service: "storage", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h Handlers) personaName(personaID string) string {
	if h.Settings == nil || personaID == "" {
		return ""
	}
	for _, p := range h.Settings.Get().Personas {
		if p.ID == personaID {
			return p.Name
		}
	}
	return ""
}

// --- Query helpers ---

func boolQuery(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
