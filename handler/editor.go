package handler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"

	"github.com/TIANLI0/MaskKit/model"
	"github.com/TIANLI0/MaskKit/service"
	"github.com/TIANLI0/MaskKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EditorHandler struct {
	editor *service.Editor
}

func NewEditorHandler(editor *service.Editor) *EditorHandler {
	return &EditorHandler{editor: editor}
}

// Register 注册编辑器路由
func (h *EditorHandler) Register(r gin.IRouter) {
	r.GET("/frame", h.Frame)
	r.GET("/state", h.State)
	r.POST("/resize", h.Resize)
	r.POST("/pointer", h.Pointer)
	r.POST("/scroll", h.Scroll)
	r.POST("/slider", h.Slider)
	r.POST("/button/:name", h.Button)
}

// Frame 返回当前帧
func (h *EditorHandler) Frame(c *gin.Context) {
	h.respond(c, h.editor.Frame(), nil)
}

// State 返回当前视图状态
func (h *EditorHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stem":    h.editor.Stem(),
		"state":   h.editor.State(),
	})
}

// Resize 处理视口尺寸变化
func (h *EditorHandler) Resize(c *gin.Context) {
	var req model.ResizeRequest
	if !bind(c, &req) {
		return
	}
	frame, err := h.editor.OnResize(req.Width, req.Height)
	h.respond(c, frame, err)
}

// Pointer 处理指针移动与拖动
func (h *EditorHandler) Pointer(c *gin.Context) {
	var req model.PointerRequest
	if !bind(c, &req) {
		return
	}
	if req.Drag {
		h.respond(c, h.editor.OnPointerDrag(req.X, req.Y), nil)
		return
	}
	h.respond(c, h.editor.OnPointerMove(req.X, req.Y), nil)
}

// Scroll 处理滚轮调整画笔
func (h *EditorHandler) Scroll(c *gin.Context) {
	var req model.ScrollRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, h.editor.OnScroll(req.X, req.Y, req.Notches), nil)
}

// Slider 处理透明度滑块
func (h *EditorHandler) Slider(c *gin.Context) {
	var req model.SliderRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, h.editor.OnSliderChange(req.Value), nil)
}

// Button 处理 prev/next/clean/reset
func (h *EditorHandler) Button(c *gin.Context) {
	name := c.Param("name")
	frame, err := h.editor.OnButton(name)
	if err == nil {
		utils.Logger.Info("button", zap.String("name", name), zap.String("stem", frame.Stem))
	}
	h.respond(c, frame, err)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request",
			Error:   err.Error(),
		})
		return false
	}
	return true
}

func (h *EditorHandler) respond(c *gin.Context, frame *service.Frame, err error) {
	if err != nil {
		status, message := classify(err)
		utils.Logger.Error("editor command failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, model.ErrorResponse{
			Success: false,
			Message: message,
			Error:   err.Error(),
		})
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image); err != nil {
		utils.Logger.Error("failed to encode frame", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "failed to encode frame",
			Error:   err.Error(),
		})
		return
	}

	size := frame.Image.Bounds().Size()
	c.JSON(http.StatusOK, model.FrameResponse{
		Success: true,
		Message: "ok",
		Data: &model.FrameResult{
			Stem:   frame.Stem,
			Label:  frame.Label,
			Width:  size.X,
			Height: size.Y,
			State:  frame.State,
			Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		},
	})
}

func classify(err error) (int, string) {
	var integrity *service.DatasetIntegrityError
	var mismatch *service.DimensionMismatchError
	switch {
	case errors.Is(err, service.ErrUnknownButton):
		return http.StatusNotFound, "unknown button"
	case errors.Is(err, service.ErrInvalidViewport):
		return http.StatusBadRequest, "invalid viewport"
	case errors.As(err, &mismatch), errors.As(err, &integrity):
		return http.StatusUnprocessableEntity, "dataset error"
	default:
		return http.StatusInternalServerError, "editor error"
	}
}
