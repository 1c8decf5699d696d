package speech

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AudioHandler serves cached clips to the telephony provider.
type AudioHandler struct {
	Cache *Cache
}

// GET /audio/cached/:id
func (h AudioHandler) Serve(c *gin.Context) {
	audio, ok := h.Cache.Fetch(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "Audio not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "audio/mpeg", audio)
}
