package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

// statusOf 错误分类 -> HTTP 状态码
func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail 写出错误响应；内部错误只记日志，不把细节返回给客户端
func (h *Handler) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResp{Error: "internal error", Code: domain.CodeOf(err)})
		return
	}
	c.JSON(statusOf(kind), ErrorResp{Error: err.Error(), Code: domain.CodeOf(err)})
}

// badRequest 请求体无法解析
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResp{Error: msg, Code: "bad_request"})
}
