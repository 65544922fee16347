package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func listTransmissionsHandler(repo repository.TransmissionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var st model.TransmissionStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.TransmissionStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		rows, err := repo.List(c.Request().Context(), st, limit, offset)
		if err != nil {
			log.Errorf("transmissions list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
