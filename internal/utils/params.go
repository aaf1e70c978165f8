package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
)

// ParseIDParam reads a positive numeric path parameter.
func ParseIDParam(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", apierrors.ErrValidation, name)
	}
	return id, nil
}
