// Package versioning maps version_id columns to weak ETags and If-Match
// preconditions.
package versioning

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Versioned is implemented by aggregates that carry a version_id.
type Versioned interface {
	GetVersionID() int
}

// SetHeaders sets ETag and, when updatedAt is non-zero, Last-Modified.
func SetHeaders(c echo.Context, v Versioned, updatedAt time.Time) {
	c.Response().Header().Set("ETag", FormatETag(v.GetVersionID()))
	if !updatedAt.IsZero() {
		c.Response().Header().Set("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	}
}

// ExpectedVersion returns the version named by If-Match, or 0 when the header
// is absent. A wildcard is treated as absent.
func ExpectedVersion(c echo.Context) (int, error) {
	ifMatch := strings.TrimSpace(c.Request().Header.Get("If-Match"))
	if ifMatch == "" || ifMatch == "*" {
		return 0, nil
	}
	v, err := ParseETag(ifMatch)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid If-Match header: "+err.Error())
	}
	return v, nil
}

// ParseETag extracts the version number from an ETag value like W/"3" or "3".
func ParseETag(etag string) (int, error) {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)

	v, err := strconv.Atoi(etag)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("ETag must contain a positive numeric version: %s", etag)
	}
	return v, nil
}

func FormatETag(versionID int) string {
	return fmt.Sprintf(`W/"%d"`, versionID)
}
