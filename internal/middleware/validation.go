package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpenAPIValidationMiddleware rejects requests whose parameters or body do
// not match the OpenAPI document. Routes the document does not describe
// (such as /metrics) pass through untouched.
func OpenAPIValidationMiddleware(doc *openapi3.T, logger *zap.Logger) gin.HandlerFunc {
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(c *gin.Context) {
		fullPath := c.FullPath()
		if fullPath == "" {
			c.Next()
			return
		}

		path := openAPIPath(fullPath)
		pathItem := doc.Paths.Find(path)
		if pathItem == nil {
			c.Next()
			return
		}
		operation := pathItem.GetOperation(c.Request.Method)
		if operation == nil {
			c.Next()
			return
		}

		pathParams := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			pathParams[p.Key] = p.Value
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route: &routers.Route{
				Spec:      doc,
				Path:      path,
				PathItem:  pathItem,
				Method:    c.Request.Method,
				Operation: operation,
			},
			Options: options,
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			details := validationDetails(err)
			logger.Warn("request failed schema validation",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString("request_id")),
				zap.String("details", details),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{
				Code:    api.CodeValidationError,
				Message: "Request does not match the API schema",
				Details: &details,
			})
			return
		}

		c.Next()
	}
}

// openAPIPath converts a gin route template (/a/:id) to OpenAPI form (/a/{id})
func openAPIPath(ginPath string) string {
	segments := strings.Split(ginPath, "/")
	for i, s := range segments {
		if len(s) > 1 && (s[0] == ':' || s[0] == '*') {
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

func validationDetails(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			field := strings.Join(schemaErr.JSONPointer(), ".")
			if field != "" {
				return field + ": " + schemaErr.Reason
			}
			return schemaErr.Reason
		}
		if reqErr.Reason != "" {
			return reqErr.Reason
		}
	}
	return err.Error()
}
