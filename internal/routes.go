package internal

import (
	"net/http"

	"gsd/internal/controllers"
	"gsd/internal/providers"
)

func InitRoutes(
	uploadController *controllers.UploadController,
	lastController *controllers.LastController,
	glucoseController *controllers.GlucoseController,
	episodeController *controllers.EpisodeController,
	instantController *controllers.InstantGlucoseController,
	insulinController *controllers.InsulinController,
	lowController *controllers.LowController,
	foodController *controllers.FoodController,
	userdataController *controllers.UserdataController,
	webhooksController *controllers.WebhooksController,
	hba1cController *controllers.HbA1cController,
) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/upload", http.HandlerFunc(uploadController.Upload))
	routers.Get("/last", http.HandlerFunc(lastController.GetLast))
	routers.Get("/revision", http.HandlerFunc(lastController.GetRevision))
	routers.Get("/current", http.HandlerFunc(glucoseController.GetCurrentState))

	routers.Get("/glucose/last", http.HandlerFunc(glucoseController.GetLast))
	routers.Get("/glucose/find", http.HandlerFunc(glucoseController.Find))
	routers.Get("/glucose/current", http.HandlerFunc(glucoseController.GetCurrent))
	routers.Post("/glucose/upload", http.HandlerFunc(glucoseController.Upload))
	routers.Delete("/glucose", http.HandlerFunc(glucoseController.ClearAll))

	routers.Get("/episode", http.HandlerFunc(episodeController.GetCurrent))
	routers.Delete("/episode", http.HandlerFunc(episodeController.ClearAll))
	routers.Get("/episode/current", http.HandlerFunc(episodeController.GetCurrentRecord))
	routers.Get("/episode/last", http.HandlerFunc(episodeController.GetLast))
	routers.Post("/episode/upload", http.HandlerFunc(episodeController.Upload))

	routers.Get("/instant-glucose/last", http.HandlerFunc(instantController.GetLast))
	routers.Get("/instant-glucose/find", http.HandlerFunc(instantController.Find))
	routers.Get("/instant-glucose/download", http.HandlerFunc(instantController.Download))
	routers.Post("/instant-glucose/upload", http.HandlerFunc(instantController.Upload))
	routers.Delete("/instant-glucose", http.HandlerFunc(instantController.ClearAll))

	routers.Get("/insulin/last", http.HandlerFunc(insulinController.GetLast))
	routers.Post("/insulin/upload", http.HandlerFunc(insulinController.Upload))
	routers.Delete("/insulin", http.HandlerFunc(insulinController.ClearAll))

	routers.Get("/low/last", http.HandlerFunc(lowController.GetLast))
	routers.Post("/low/upload", http.HandlerFunc(lowController.Upload))
	routers.Delete("/low", http.HandlerFunc(lowController.ClearAll))

	routers.Get("/food/last", http.HandlerFunc(foodController.GetLast))
	routers.Post("/food/upload", http.HandlerFunc(foodController.Upload))
	routers.Delete("/food", http.HandlerFunc(foodController.ClearAll))

	routers.Get("/userdata/{key}", http.HandlerFunc(userdataController.Get))
	routers.Put("/userdata/{key}", http.HandlerFunc(userdataController.Set))
	routers.Delete("/userdata/{key}", http.HandlerFunc(userdataController.Delete))
	routers.Put("/userdata/{key}/lpush", http.HandlerFunc(userdataController.LPush))
	routers.Get("/userdata/{key}/lrange", http.HandlerFunc(userdataController.LRange))

	routers.Put("/webhooks/{event}", http.HandlerFunc(webhooksController.Register))
	routers.Get("/webhooks/{event}", http.HandlerFunc(webhooksController.List))
	routers.Delete("/webhooks/{event}", http.HandlerFunc(webhooksController.DeleteAll))
	routers.Get("/webhooks/{event}/last", http.HandlerFunc(webhooksController.LastDeliveries))
	routers.Delete("/webhooks/{event}/{id}", http.HandlerFunc(webhooksController.Delete))

	routers.Post("/hba1c", http.HandlerFunc(hba1cController.Compute))

	return routers
}
