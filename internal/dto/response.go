// Package dto holds the JSON shapes returned by the HTTP API.
package dto

import "github.com/gin-gonic/gin"

// Envelope is the success body: {"success": true, "data": ...}.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// Respond writes data inside the success envelope.
func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// MessageDTO is used by endpoints that only acknowledge the request.
type MessageDTO struct {
	Message string `json:"message"`
}
