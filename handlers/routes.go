package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/threespace/site-backend/internal/models"
	"github.com/threespace/site-backend/internal/resource/handler"
	"github.com/threespace/site-backend/internal/resource/service"
	"github.com/threespace/site-backend/internal/upload"
	"github.com/threespace/site-backend/internal/verification"
	"github.com/threespace/site-backend/pkg/middleware"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Blogs        *service.Service[models.BlogPost]
	Careers      *service.Service[models.CareerPosting]
	Products     *service.Service[models.Product]
	Contacts     *service.Service[models.ContactMessage]
	Verification *verification.Service
	Uploads      *upload.Uploader
}

// RouteOptions configures request handling shared by all routes.
type RouteOptions struct {
	Resource handler.Options
	// VerifyLimiter throttles POST /api/verify/request per client IP.
	VerifyLimiter middleware.Limiter
	Health        *Health
}

// RegisterRoutes mounts the whole public API on r.
func RegisterRoutes(r *gin.Engine, s Services, opts RouteOptions) {
	api := r.Group("/api")
	handler.Register(api, "/blogs", s.Blogs, opts.Resource)
	handler.Register(api, "/careers", s.Careers, opts.Resource)
	handler.Register(api, "/products", s.Products, opts.Resource)
	handler.Register(api, "/contact", s.Contacts, opts.Resource)

	NewVerificationHandler(s.Verification, opts.VerifyLimiter).Register(api)

	if opts.Health != nil {
		opts.Health.Register(r)
	}
	RegisterUploads(r, s.Uploads)
	RegisterSwagger(r)
}

// NewMemoryServices builds services backed by in-process stores. Used by
// the dev server and handler tests.
func NewMemoryServices(up *upload.Uploader, verify *verification.Service) Services {
	return Services{
		Blogs:        service.NewMemory[models.BlogPost](models.BlogResource, up),
		Careers:      service.NewMemory[models.CareerPosting](models.CareerResource, up),
		Products:     service.NewMemory[models.Product](models.ProductResource, up),
		Contacts:     service.NewMemory[models.ContactMessage](models.ContactResource, up),
		Verification: verify,
		Uploads:      up,
	}
}
