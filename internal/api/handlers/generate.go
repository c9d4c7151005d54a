package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aifeed/aifeed/internal/autopost"
)

// scheduledTimeLayout renders times the way the es-AR locale does.
const scheduledTimeLayout = "2/1/2006, 15:04:05"

// Generator runs one generation and knows the display time zone.
type Generator interface {
	Run(ctx context.Context) (*autopost.Outcome, error)
	Location() *time.Location
}

// GenerateResult is the data of a successful generation.
type GenerateResult struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	Topic           string `json:"topic"`
	WordCount       int    `json:"word_count"`
	AIProvider      string `json:"ai_provider"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	ScheduledTime   string `json:"scheduled_time"`
}

// GenerateResponse is the envelope of GET|POST /api/generate-post.
type GenerateResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Data      *GenerateResult `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// GeneratePost handles GET and POST /api/generate-post. A duplicate is
// answered with 200 and success false; any failure with 500. The run is
// not cut short when the client goes away.
func GeneratePost(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := gen.Run(context.WithoutCancel(r.Context()))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, GenerateResponse{
				Success:   false,
				Error:     failureMessage(err),
				Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			})
			return
		}

		if out.Duplicate {
			writeJSON(w, http.StatusOK, GenerateResponse{
				Success: false,
				Message: "Post duplicado detectado, omitiendo generación",
				Topic:   out.Topic,
			})
			return
		}

		p := out.Post
		writeJSON(w, http.StatusOK, GenerateResponse{
			Success: true,
			Message: "Post automático generado exitosamente",
			Data: &GenerateResult{
				ID:              p.ID,
				Title:           p.Title,
				Category:        p.Category,
				Topic:           p.Topic,
				WordCount:       p.WordCount,
				AIProvider:      p.AIProvider,
				ExecutionTimeMS: out.Elapsed.Milliseconds(),
				ScheduledTime:   out.FinishedAt.In(gen.Location()).Format(scheduledTimeLayout),
			},
		})
	}
}

func failureMessage(err error) string {
	if errors.Is(err, autopost.ErrGenerationExhausted) {
		return "No se pudo generar el post: " + err.Error()
	}
	return err.Error()
}
