package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hostel-allotment-backend/internal/allotment"
	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/store"
)

// AllotmentService is the part of allotment.Service the handlers use.
type AllotmentService interface {
	Run(ctx context.Context) (*allotment.RunResult, error)
	LastRun() (*allotment.RunResult, bool)
	Availability(ctx context.Context) (*allotment.Availability, error)
	HostelAvailability() ([]allotment.HostelAvailability, error)
	AllottedStudents(ctx context.Context) ([]allotment.AllottedStudent, error)
	Withdraw(ctx context.Context, studentID string) (*model.AllotmentRecord, error)
	Reconcile(ctx context.Context) (*allotment.ReconcileReport, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     AllotmentService
	store   store.Store
	webpush *webpush.Options
	logger  *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc AllotmentService, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
		logger:  logger,
	}
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and reported without detail.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, allotment.ErrRunInProgress):
		status, message = http.StatusConflict, "allotment already in progress"
	case errors.Is(err, allotment.ErrNotAllotted):
		status, message = http.StatusNotFound, "student has no active allotment"
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "allotment timed out"
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"success": false, "message": message})
}
