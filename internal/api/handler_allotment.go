package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hostel-allotment-backend/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AllotRooms triggers an allotment run.
func (h *Handler) AllotRooms(c *gin.Context) {
	res, err := h.svc.Run(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         res.Summary(),
		"assignedCount":   len(res.Assigned),
		"unallottedCount": len(res.Unallotted),
		"errorCount":      len(res.Errors),
		"runId":           res.RunID,
	})
}

// GetAvailability returns bed counts per gender and room type.
func (h *Handler) GetAvailability(c *gin.Context) {
	av, err := h.svc.Availability(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "availability": av})
}

// GetHostels returns the live counts of every hostel.
func (h *Handler) GetHostels(c *gin.Context) {
	hostels, err := h.svc.HostelAvailability()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "hostels": hostels})
}

// GetAllottedStudents lists every student with an active allotment.
func (h *Handler) GetAllottedStudents(c *gin.Context) {
	rows, err := h.svc.AllottedStudents(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows})
}

// ExportAllottedStudents streams the allotted students as a workbook.
func (h *Handler) ExportAllottedStudents(c *gin.Context) {
	rows, err := h.svc.AllottedStudents(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAllottedStudents(&buf, rows); err != nil {
		h.logger.Error("Failed to build export", zap.Error(err))
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="allotted-students.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetLastRun reports the most recent run, including unallotted reasons.
func (h *Handler) GetLastRun(c *gin.Context) {
	res, ok := h.svc.LastRun()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no allotment run yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "run": res})
}

// Withdraw cancels a student's allotment.
func (h *Handler) Withdraw(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "studentId is required"})
		return
	}

	rec, err := h.svc.Withdraw(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "allotment withdrawn",
		"data": gin.H{
			"studentId":  rec.StudentID,
			"bedId":      rec.BedID,
			"roomNumber": rec.RoomNumber,
		},
	})
}

// Reconcile repairs counters from the allotment records.
func (h *Handler) Reconcile(c *gin.Context) {
	report, err := h.svc.Reconcile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
