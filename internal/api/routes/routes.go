package routes

import (
	controllers "vm-rental/internal/api/controllers"
	"vm-rental/internal/middleware"

	gin "github.com/gin-gonic/gin"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Health *controllers.HealthController
	Auth   *controllers.AuthController
	VM     *controllers.VirtualMachineController
	Queue  *controllers.QueueController
	Plan   *controllers.PlanController
	Sweep  *controllers.SweepController
	Disk   *controllers.DiskController
}

// SetupRouter mounts all routes. Everything under /api except login sits
// behind the operator auth guard.
func SetupRouter(c Controllers, jwtSecret string) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestID())

	c.Health.RegisterRoutes(r.Group("/"))

	api := r.Group("/api")
	c.Auth.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.AuthGuard(jwtSecret))
	c.Auth.RegisterProtectedRoutes(protected)
	c.VM.RegisterRoutes(protected)
	c.Queue.RegisterRoutes(protected)
	c.Plan.RegisterRoutes(protected)
	c.Sweep.RegisterRoutes(protected)
	c.Disk.RegisterRoutes(protected)

	return r
}
