package main

import (
	"github.com/recipehub/recipehub/config"
	"github.com/recipehub/recipehub/controllers"
	"github.com/recipehub/recipehub/models"
	"github.com/recipehub/recipehub/routes"
	"github.com/recipehub/recipehub/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{}, &models.Post{}, &models.PostImage{},
		&models.Tag{}, &models.PostTag{},
		&models.Comment{}, &models.CommentReaction{},
		&models.Favorite{}, &models.SavedRecipe{},
	)

	if err := controllers.CreateDefaultAdmin(db); err != nil {
		utils.Sugar.Fatalf("default admin bootstrap failed: %v", err)
	}

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
