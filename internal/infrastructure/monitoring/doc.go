/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the feed
backend, tracking HTTP requests, service calls, feed activity, generation
and sandbox lifecycle.

Each Metrics value owns a private registry, so tests can build as many
servers as they like without duplicate registration panics.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "apps", "create")
	app, err := manager.Create(ctx, req)
	timer.StopErr(err)
*/
package monitoring
