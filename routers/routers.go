package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/agrovista/fieldmap/views"
)

func GeoRouters(r *gin.Engine, uc *views.UserController) {
	aoiRouter := r.Group("/aoi")
	{
		aoiRouter.POST("/AddAOI", uc.AddAOI)
		aoiRouter.GET("/ShowAOIs", uc.ShowAOIs)
		aoiRouter.GET("/DelAOI", uc.DelAOI)
		aoiRouter.POST("/UpdateAOIGeo", uc.UpdateAOIGeo)
		aoiRouter.POST("/Area", uc.Area)
		aoiRouter.POST("/ConvertGeometry", uc.ConvertGeometry)

		aoiRouter.POST("/StartEditGeo", uc.StartEditGeo)
		aoiRouter.POST("/DragVertex", uc.DragVertex)
		aoiRouter.POST("/SaveEditGeo", uc.SaveEditGeo)
		aoiRouter.GET("/CancelEditGeo", uc.CancelEditGeo)
	}
	splitRouter := r.Group("/split")
	{
		splitRouter.POST("/StartSplit", uc.StartSplit)
		splitRouter.POST("/ReSimulate", uc.ReSimulate)
		splitRouter.POST("/MergePreviews", uc.MergePreviews)
		splitRouter.POST("/EditPreview", uc.EditPreview)
		splitRouter.POST("/DragPreviewVertex", uc.DragPreviewVertex)
		splitRouter.POST("/ApplySplit", uc.ApplySplit)
		splitRouter.GET("/CancelSplit", uc.CancelSplit)
		splitRouter.GET("/ShowSession", uc.ShowSession)
	}
	mergeRouter := r.Group("/merge")
	{
		mergeRouter.POST("/MergeAOIs", uc.MergeAOIs)
	}
	statusRouter := r.Group("/status")
	{
		statusRouter.POST("/GetStatus", uc.GetStatus)
		statusRouter.GET("/GetSignals", uc.GetSignals)
		statusRouter.POST("/AddSignal", uc.AddSignal)
	}
	apiRouter := r.Group("/api")
	{
		apiRouter.POST("/SimulateSplit", uc.APISimulateSplit)
		apiRouter.POST("/ApplySplit", uc.APIApplySplit)
		apiRouter.POST("/CreateAOI", uc.APICreateAOI)
		apiRouter.GET("/DeleteAOI", uc.APIDeleteAOI)
		apiRouter.POST("/UpdateAOI", uc.APIUpdateAOI)
		apiRouter.GET("/GetAOI", uc.APIGetAOI)
		apiRouter.GET("/ListAOIs", uc.APIListAOIs)
		apiRouter.POST("/ListStatus", uc.APIListStatus)
		apiRouter.GET("/ListSignals", uc.APIListSignals)
	}
}
