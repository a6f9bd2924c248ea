package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/cohort-admin-api/internal/middleware"
	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
	"github.com/noah-isme/cohort-admin-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// canonicalUUIDLength is the length of the hyphenated 8-4-4-4-12 form.
const canonicalUUIDLength = 36

// parseCanonicalUUID accepts only the hyphenated form that postgres returns.
// uuid.Parse alone also accepts urn and braced forms, which the database
// rejects.
func parseCanonicalUUID(value string) error {
	if len(value) != canonicalUUIDLength {
		return fmt.Errorf("uuid must be %d characters, got %d", canonicalUUIDLength, len(value))
	}
	_, err := uuid.Parse(value)
	return err
}

// pathID reads the :id parameter and rejects values that are not UUIDs.
// It writes the error response itself and reports false in that case.
func pathID(c *gin.Context, resource string) (string, bool) {
	id := c.Param("id")
	if err := parseCanonicalUUID(id); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid "+resource+" id"))
		return "", false
	}
	return id, true
}

// queryUUID reads an optional UUID query parameter.
func queryUUID(c *gin.Context, key string) (string, bool) {
	value := c.Query(key)
	if value == "" {
		return "", true
	}
	if err := parseCanonicalUUID(value); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid "+key))
		return "", false
	}
	return value, true
}

// bindJSON decodes the request body into dest, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
