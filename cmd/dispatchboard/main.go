// Command dispatchboard is a read-only reporting surface (C11): it lists
// recent simulation runs and serves an H3 heatmap of the loaded road network,
// grounded on this codebase's location-service entry point (gin, godotenv).
package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ubi-africa/dispatch-sim/internal/geoindex"
	"github.com/ubi-africa/dispatch-sim/internal/loader"
	"github.com/ubi-africa/dispatch-sim/internal/store/pgstore"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "4099"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "postgres://localhost:5432/dispatchsim"
	}
	nodesCSV := os.Getenv("DISPATCHBOARD_NODES_CSV")

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		gin.DefaultWriter.Write([]byte("failed to connect to database: " + err.Error() + "\n"))
		os.Exit(1)
	}
	defer pool.Close()

	runStore := pgstore.NewRunStore(pool)
	if err := runStore.CreateRunsTable(context.Background()); err != nil {
		gin.DefaultWriter.Write([]byte("failed to create runs table: " + err.Error() + "\n"))
		os.Exit(1)
	}

	var geoIdx *geoindex.Index
	if nodesCSV != "" {
		if _, net, err := loader.LoadNodes(nodesCSV); err == nil {
			geoIdx = geoindex.Build(net)
		}
	}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"service":   "dispatchboard",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/api/runs", func(c *gin.Context) {
		limit := 50
		runs, err := runStore.ListRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"runs": runs})
	})

	router.GET("/api/runs/:runID", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("runID"))
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid run id"})
			return
		}
		run, err := runStore.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(404, gin.H{"error": "run not found"})
			return
		}
		c.JSON(200, run)
	})

	router.GET("/api/heatmap", func(c *gin.Context) {
		if geoIdx == nil {
			c.JSON(503, gin.H{"error": "no road network loaded; set DISPATCHBOARD_NODES_CSV"})
			return
		}
		c.JSON(200, gin.H{"cells": geoIdx.CellCounts()})
	})

	router.Run(":" + port)
}
