package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tap-race-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamRoomEventsSSE streams a room's taps and contest transitions
// over SSE, polling the database with a created-at cursor. NATS is the
// primary realtime path; this endpoint serves clients that can only
// hold a plain HTTP stream.
func (s *RoomService) StreamRoomEventsSSE(c *fiber.Ctx) error {
	roomID := c.Params("id")

	var room models.Room
	if err := s.DB.Select("id").First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
		}
		log.Printf("SSE room lookup error for %s: %v", roomID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	db := s.DB
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		cursor := time.Now()
		lastEndedContest := ""

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var taps []models.Tap
				err := db.
					Joins("JOIN contests ON contests.id = taps.contest_id").
					Where("contests.room_id = ? AND taps.created_at > ?", roomID, cursor).
					Order("taps.created_at ASC").
					Find(&taps).Error
				if err != nil {
					log.Printf("SSE tap query error for room %s: %v", roomID, err)
					continue
				}

				for _, tap := range taps {
					payload, _ := json.Marshal(tap)
					fmt.Fprintf(w, "event: tap\ndata: %s\n\n", payload)
				}
				if len(taps) > 0 {
					cursor = taps[len(taps)-1].CreatedAt
				}

				var latest models.Contest
				err = db.
					Where("room_id = ? AND end_time IS NOT NULL", roomID).
					Order("end_time DESC").
					First(&latest).Error
				if err == nil && latest.ID != lastEndedContest {
					lastEndedContest = latest.ID
					payload, _ := json.Marshal(latest)
					fmt.Fprintf(w, "event: contest\ndata: %s\n\n", payload)
				} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("SSE contest query error for room %s: %v", roomID, err)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
