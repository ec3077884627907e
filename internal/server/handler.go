package server

import (
	"errors"
	"io/fs"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/render-hub/internal/logging"
	"github.com/any-hub/render-hub/internal/render"
)

// renderSite 归一化请求参数并交给站点 Invoker；续接回调负责把错误翻译为 HTTP 响应。
func renderSite(c fiber.Ctx, route *SiteRoute, logger *logrus.Logger) error {
	started := time.Now()
	requestID := RequestID(c)

	opts, err := render.Normalize(string(c.Request().URI().Path()), route.Base)
	if err != nil {
		return renderFailure(c, logger, route, requestID, "", started, err)
	}

	opts.ContentType = route.ContentTypeFor(opts.File)

	return route.Invoker.Invoke(c, opts, func(err error) error {
		if err == nil {
			return nil
		}
		return renderFailure(c, logger, route, requestID, opts.File, started, err)
	})
}

// renderFailure 将源文件缺失映射为 404，其余错误统一为 500。
func renderFailure(
	c fiber.Ctx,
	logger *logrus.Logger,
	route *SiteRoute,
	requestID string,
	file string,
	started time.Time,
	err error,
) error {
	status := fiber.StatusInternalServerError
	code := "render_failed"
	if errors.Is(err, fs.ErrNotExist) {
		status = fiber.StatusNotFound
		code = "not_found"
	}

	fields := logging.RequestFields(route.Config.Name, route.Config.Domain, route.Compiler.Key, false)
	fields["action"] = "render"
	fields["file"] = file
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	fields["error"] = err.Error()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if status == fiber.StatusNotFound {
		logger.WithFields(fields).Warn("render_not_found")
	} else {
		logger.WithFields(fields).Error("render_failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"error": code,
	})
}
