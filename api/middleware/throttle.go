package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// Throttle returns a gin middleware that rejects new submissions while the
// host is under resource pressure. Probe failures are logged and the
// request passes; the guard must never turn a monitoring hiccup into an
// outage.
func Throttle(config *domain.ThrottleConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.Enabled {
			c.Next()
			return
		}

		if p, err := cpu.Percent(0, false); err != nil {
			log.Warn("Could not probe CPU usage", zap.Error(err))
		} else if len(p) > 0 && p[0] > config.MaxCPUPercent {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "system busy, try again later",
			})
			return
		}

		if vm, err := mem.VirtualMemory(); err != nil {
			log.Warn("Could not probe memory usage", zap.Error(err))
		} else if config.MinFreeMemory > 0 && vm.Available < uint64(config.MinFreeMemory) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "not enough free memory, try again later",
			})
			return
		}

		c.Next()
	}
}
