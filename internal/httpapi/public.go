package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"baitboard/internal/calls"
)

// publicCall is the embeddable view of a call. Phone numbers and moderation
// notes never leave the authenticated API.
type publicCall struct {
	ID              string    `json:"id"`
	Title           string    `json:"title,omitempty"`
	Status          string    `json:"status"`
	DurationSeconds *int      `json:"duration"`
	RecordingURL    string    `json:"recordingUrl,omitempty"`
	Rating          *int      `json:"rating,omitempty"`
	Tags            []string  `json:"tags"`
	PersonaID       string    `json:"personaId,omitempty"`
	Featured        bool      `json:"featured"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toPublicCall(c calls.Call) publicCall {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return publicCall{
		ID:              c.ID,
		Title:           c.Title,
		Status:          string(c.Status),
		DurationSeconds: c.DurationSeconds,
		RecordingURL:    c.RecordingURL,
		Rating:          c.Rating,
		Tags:            tags,
		PersonaID:       c.PersonaID,
		Featured:        c.Featured,
		CreatedAt:       c.CreatedAt,
	}
}

// HallOfFame lists featured public calls, newest first.
func (h Handlers) HallOfFame(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		respondError(c, h.Env, ValidationError{Msg: "limit must be an integer"})
		return
	}
	yes := true
	rows, _, err := h.Calls.List(c.Request.Context(), calls.ListFilter{
		Public:   &yes,
		Featured: &yes,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	out := make([]publicCall, len(rows))
	for i, row := range rows {
		out[i] = toPublicCall(row)
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

// Embed serves the public payload for one call. Non-public calls 404 so the
// endpoint does not leak their existence.
func (h Handlers) Embed(c *gin.Context) {
	call, segments, err := h.Calls.GetWithSegments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	if !call.Public {
		respondError(c, h.Env, NotFoundError{Resource: "call"})
		return
	}
	if segments == nil {
		segments = []calls.CallSegment{}
	}
	c.JSON(http.StatusOK, gin.H{"call": toPublicCall(call), "segments": segments})
}
