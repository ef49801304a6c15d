package app

import "github.com/gin-gonic/gin"

// Module defines the contract for a self-registering business module.
// Each module wires its own repository, service, and handler, and mounts
// its routes on the shared API group.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup)
}
