package http

import "github.com/labstack/echo/v4"

// Handler is implemented by API surfaces that attach their routes to
// the shared Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
