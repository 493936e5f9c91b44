package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/verification"
	"github.com/threespace/site-backend/pkg/middleware"
	"github.com/threespace/site-backend/pkg/response"
)

// VerificationHandler serves the email verification endpoints.
type VerificationHandler struct {
	svc     *verification.Service
	limiter middleware.Limiter
}

func NewVerificationHandler(svc *verification.Service, limiter middleware.Limiter) *VerificationHandler {
	return &VerificationHandler{svc: svc, limiter: limiter}
}

// Register mounts POST /verify/request (rate limited per client IP) and
// GET /verify/confirm.
func (h *VerificationHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/verify")
	request := []gin.HandlerFunc{h.Request}
	if h.limiter != nil {
		request = append([]gin.HandlerFunc{middleware.RateLimit(h.limiter, middleware.ClientIPKey)}, request...)
	}
	g.POST("/request", request...)
	g.GET("/confirm", h.Confirm)
}

// Request accepts {"email": "..."} as JSON or form data.
func (h *VerificationHandler) Request(c *gin.Context) {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, schema.Invalid("body", "request body must contain an email"))
		return
	}
	issued, err := h.svc.Request(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Verification email sent", issued)
}

// Confirm consumes ?token= and returns the verified address.
func (h *VerificationHandler) Confirm(c *gin.Context) {
	email, err := h.svc.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Email verified successfully", gin.H{"email": email})
}
