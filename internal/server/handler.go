package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/studyplan/studyplan/internal/logger"
)

const defaultDaysPerWeek = 6

// PlanRequest is the body of POST /plan.
type PlanRequest struct {
	Subjects    []string `json:"subjects" binding:"required,min=1,max=8,dive,required"`
	Hours       float64  `json:"hours" binding:"required,gt=0,lte=12"`
	DaysPerWeek *int     `json:"days_per_week" binding:"omitempty,gte=1,lte=7"`
}

func (r PlanRequest) days() int {
	if r.DaysPerWeek == nil {
		return defaultDaysPerWeek
	}
	return *r.DaysPerWeek
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// detailItem is one entry of a list-form validation detail.
type detailItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type Handler struct {
	gen     Generator
	version string
	log     *logger.Logger
}

func NewHandler(gen Generator, version string, log *logger.Logger) *Handler {
	if gen == nil {
		gen = TemplateGenerator{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{gen: gen, version: version, log: log}
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// POST /plan
func (h *Handler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("plan request rejected", "request_id", c.GetString(ctxRequestID), "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": bindingDetail(err)})
		return
	}

	h.log.Info("plan request received",
		"request_id", c.GetString(ctxRequestID),
		"subjects", req.Subjects,
		"hours", req.Hours,
		"days", req.days(),
	)

	resp, err := h.gen.Generate(c.Request.Context(), req)
	switch {
	case err == nil:
		c.PureJSON(http.StatusOK, resp)
	case errors.Is(err, ErrInvalidPlanInput):
		msg := strings.TrimPrefix(err.Error(), ErrInvalidPlanInput.Error()+": ")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid input: " + msg})
	default:
		h.log.Error("plan generation failed", "request_id", c.GetString(ctxRequestID), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate study plan"})
	}
}

func bindingDetail(err error) []detailItem {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		items := make([]detailItem, 0, len(verrs))
		for _, fe := range verrs {
			items = append(items, detailItem{
				Loc:  []string{"body", fe.Field()},
				Msg:  validationMessage(fe),
				Type: "value_error." + fe.Tag(),
			})
		}
		return items
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []detailItem{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  fmt.Sprintf("value is not a valid %s", typeErr.Type),
			Type: "type_error",
		}}
	}

	return []detailItem{{
		Loc:  []string{"body"},
		Msg:  "invalid JSON body: " + err.Error(),
		Type: "value_error.jsondecode",
	}}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return fmt.Sprintf("ensure this value has at least %s items", fe.Param())
	case "max":
		return fmt.Sprintf("ensure this value has at most %s items", fe.Param())
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
