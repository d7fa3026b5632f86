package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/services"
)

// JournalHandler serves the local action journal.
type JournalHandler struct {
	journal *services.JournalService
}

// NewJournalHandler creates a new JournalHandler instance.
func NewJournalHandler(journal *services.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// List returns journal entries, newest first. ?job= restricts the list to
// one job.
func (h *JournalHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var (
		entries []services.JournalEntry
		err     error
	)
	if job := c.Query("job"); job != "" {
		entries, err = h.journal.ListForJob(job, limit)
	} else {
		entries, err = h.journal.List(limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}
