package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// healthHandler reports store status, live wizard sessions and host metrics.
// It answers 503 when the store is down.
func (s *Server) healthHandler(c echo.Context) error {
	status := "online"
	code := http.StatusOK

	resp := map[string]interface{}{
		"provider": s.provider,
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
	}

	if s.db != nil {
		dbStats := s.db.Health()
		if dbStats["status"] != "up" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		resp["database"] = dbStats
	}
	if s.wizard != nil {
		resp["wizard_sessions"] = s.wizard.Sessions()
	}

	// cpu.Percent with a zero interval compares against the previous call
	// and does not block.
	if v, err := mem.VirtualMemory(); err == nil {
		resp["memory"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
		}
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		resp["cpu"] = map[string]interface{}{
			"usage_percent": fmt.Sprintf("%.2f%%", pct[0]),
		}
	}
	if h, err := host.Info(); err == nil {
		resp["runtime"] = map[string]interface{}{
			"os":       h.OS,
			"platform": h.Platform,
			"hostname": h.Hostname,
		}
	}

	resp["status"] = status
	return c.JSON(code, resp)
}
