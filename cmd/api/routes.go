package main

import (
	"doublecheck/internal/httpapi"
	"doublecheck/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	v1.POST("/auth/login", h.Login)

	// Everything below requires a verified access token.
	v1.Use(authMW)
	v1.Use(rbac.RequireActor())

	// Caller surface: services protecting a sensitive operation.
	// Background jobs authenticate with the hidden service role.
	checks := v1.Group("/checks")
	{
		checks.POST("", rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleService), h.Evaluate)

		// Reviewer surface: pending queue and resolution.
		checks.GET("/pending", rbac.RequireAnyRole(rbac.RoleReviewer), h.ListPending)
		checks.GET("/:id", rbac.RequireAnyRole(rbac.RoleReviewer), h.GetEntry)
		checks.POST("/:id/approve", rbac.RequireAnyRole(rbac.RoleReviewer), h.Approve)
		checks.POST("/:id/reject", rbac.RequireAnyRole(rbac.RoleReviewer), h.Reject)
	}

	// Operator queries over the audit trail.
	actors := v1.Group("/actors")
	{
		actors.GET("/:actor_id/history", rbac.RequireAnyRole(rbac.RoleReviewer), h.ActorHistory)
	}
}
