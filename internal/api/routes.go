package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/guardkit/guardkit/internal/api/middleware"
	"github.com/guardkit/guardkit/internal/models"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Health endpoint
	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/validate").
			To(handler.Validate).
			Doc("Run the full validator chain against a text").
			Metadata(restfulspec.KeyOpenAPITags, []string{"validate"}).
			Reads(models.ValidatePayload{}).
			Writes(models.GuardResult{}).
			Returns(200, "OK", models.GuardResult{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(502, "Endpoint Unavailable", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/validate/stream").
			To(handler.ValidateStream).
			Doc("Validate a stream of fragments; NDJSON in, NDJSON out, one result per fragment in order").
			Metadata(restfulspec.KeyOpenAPITags, []string{"validate"}).
			Consumes("application/x-ndjson").
			Produces("application/x-ndjson").
			Returns(200, "OK", nil).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/validate/{validator_name}/stream").
			To(handler.ValidateSingleStream).
			Doc("Validate a stream of fragments with one named validator; NDJSON in, NDJSON out").
			Metadata(restfulspec.KeyOpenAPITags, []string{"validate"}).
			Param(ws.PathParameter("validator_name", "Validator name").DataType("string")).
			Consumes("application/x-ndjson").
			Produces("application/x-ndjson").
			Returns(200, "OK", nil).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/validate/{validator_name}").
			To(handler.ValidateSingle).
			Doc("Run a single validator against a text").
			Metadata(restfulspec.KeyOpenAPITags, []string{"validate"}).
			Param(ws.PathParameter("validator_name", "Validator name (toxic-language, detect-pii, regex-match, or any configured llm validator)").DataType("string")).
			Reads(models.ValidatePayload{}).
			Writes(models.ValidationResult{}).
			Returns(200, "OK", models.ValidationResult{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(404, "Validator Not Found", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	container.Add(ws)
}
