package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// channelRow is one dim_channels record. A NULL staging username passes
// through the dimension, so both columns are nullable.
type channelRow struct {
	ChannelUsername *string `json:"channelUsername"`
	ChannelID       *string `json:"channelId"`
}

// ListChannels returns all channels in the channel dimension.
func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	rel, err := h.registry.RelationFor("dim_channels")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "unknown relation", err)
		return
	}

	q := fmt.Sprintf("SELECT channel_username, channel_id FROM %s ORDER BY channel_username", rel)
	rows, err := h.db.Query(r.Context(), q)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to query channels", err)
		return
	}
	defer rows.Close()

	channels := []channelRow{}
	for rows.Next() {
		var c channelRow
		if err := rows.Scan(&c.ChannelUsername, &c.ChannelID); err != nil {
			h.writeError(w, http.StatusInternalServerError, "failed to scan channel", err)
			return
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read channels", err)
		return
	}
	h.writeJSON(w, channels)
}

// activityRow is one day of posting activity for a channel. The date is
// nullable: messages whose raw date never matched the date spine group under
// a NULL media_date.
type activityRow struct {
	Date         *string `json:"date"`
	MessageCount int64   `json:"messageCount"`
	ImageCount   int64   `json:"imageCount"`
}

// ChannelActivity returns daily message and image counts for one channel.
func (h *Handlers) ChannelActivity(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	facts, err := h.registry.RelationFor("fct_messages")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "unknown relation", err)
		return
	}
	dims, err := h.registry.RelationFor("dim_channels")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "unknown relation", err)
		return
	}

	dialect := h.db.Dialect()
	q := fmt.Sprintf(`SELECT f.media_date::TEXT, COUNT(*), COUNT(*) FILTER (WHERE f.has_image)
FROM %s f
JOIN %s c ON c.channel_id = f.channel_id
WHERE c.channel_username = %s
GROUP BY f.media_date
ORDER BY f.media_date`, facts, dims, placeholder(dialect, 1))

	rows, err := h.db.Query(r.Context(), q, username)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to query activity", err)
		return
	}
	defer rows.Close()

	activity := []activityRow{}
	for rows.Next() {
		var a activityRow
		if err := rows.Scan(&a.Date, &a.MessageCount, &a.ImageCount); err != nil {
			h.writeError(w, http.StatusInternalServerError, "failed to scan activity", err)
			return
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read activity", err)
		return
	}
	h.writeJSON(w, map[string]any{
		"channelUsername": username,
		"activity":        activity,
	})
}

// messageRow is one fct_messages record. Dimension keys stay NULL when the
// left joins found no match, so they scan through pointers.
type messageRow struct {
	MessageID int64   `json:"messageId"`
	ChannelID *string `json:"channelId"`
	MediaDate *string `json:"mediaDate"`
	HasImage  bool    `json:"hasImage"`
}

// ListMessages returns message facts filtered by channel, date range, and
// image presence.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	facts, err := h.registry.RelationFor("fct_messages")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "unknown relation", err)
		return
	}
	dims, err := h.registry.RelationFor("dim_channels")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "unknown relation", err)
		return
	}

	dialect := h.db.Dialect()
	query := r.URL.Query()

	var (
		conds []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return placeholder(dialect, len(args))
	}
	if v := query.Get("channel"); v != "" {
		conds = append(conds, fmt.Sprintf("f.channel_id IN (SELECT channel_id FROM %s WHERE channel_username = %s)", dims, bind(v)))
	}
	if v := query.Get("from"); v != "" {
		conds = append(conds, "f.media_date >= "+bind(v)+"::DATE")
	}
	if v := query.Get("to"); v != "" {
		conds = append(conds, "f.media_date <= "+bind(v)+"::DATE")
	}
	switch query.Get("hasImage") {
	case "true":
		conds = append(conds, "f.has_image")
	case "false":
		conds = append(conds, "NOT f.has_image")
	}

	q := fmt.Sprintf("SELECT f.message_id, f.channel_id, f.media_date::TEXT, f.has_image FROM %s f", facts)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY f.media_date DESC, f.message_id DESC LIMIT %d", limitParam(r, 50, 500))

	rows, err := h.db.Query(r.Context(), q, args...)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to query messages", err)
		return
	}
	defer rows.Close()

	messages := []messageRow{}
	for rows.Next() {
		var m messageRow
		if err := rows.Scan(&m.MessageID, &m.ChannelID, &m.MediaDate, &m.HasImage); err != nil {
			h.writeError(w, http.StatusInternalServerError, "failed to scan message", err)
			return
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read messages", err)
		return
	}
	h.writeJSON(w, messages)
}

// detectionClassRow aggregates detections for one object class.
type detectionClassRow struct {
	DetectedObjectClass string  `json:"detectedObjectClass"`
	DetectionCount      int64   `json:"detectionCount"`
	AvgConfidence       float64 `json:"avgConfidence"`
}

// TopDetections returns the most frequently detected object classes.
func (h *Handlers) TopDetections(w http.ResponseWriter, r *http.Request) {
	rel, err := h.registry.RelationFor("fct_image_detections")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "unknown relation", err)
		return
	}

	q := fmt.Sprintf(`SELECT detected_object_class, COUNT(*), AVG(confidence_score)
FROM %s
GROUP BY detected_object_class
ORDER BY COUNT(*) DESC, detected_object_class
LIMIT %d`, rel, limitParam(r, 10, 100))

	rows, err := h.db.Query(r.Context(), q)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to query detections", err)
		return
	}
	defer rows.Close()

	classes := []detectionClassRow{}
	for rows.Next() {
		var d detectionClassRow
		if err := rows.Scan(&d.DetectedObjectClass, &d.DetectionCount, &d.AvgConfidence); err != nil {
			h.writeError(w, http.StatusInternalServerError, "failed to scan detection", err)
			return
		}
		classes = append(classes, d)
	}
	if err := rows.Err(); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read detections", err)
		return
	}
	h.writeJSON(w, classes)
}
