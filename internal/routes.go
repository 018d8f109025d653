package internal

import (
	"net/http"
	"rewind/internal/controllers"
	"rewind/internal/providers"
)

func InitRoutes(dashboardController *controllers.DashboardController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/", http.HandlerFunc(dashboardController.Dashboard))
	routers.Get("/api/summary", http.HandlerFunc(dashboardController.GetSummary))
	routers.Get("/api/top", http.HandlerFunc(dashboardController.GetTop))
	return routers
}
