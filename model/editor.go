package model

// EditorState 编辑器视图状态，可序列化保存
type EditorState struct {
	Index          int     `json:"index"`
	Total          int     `json:"total"`
	Zoom           float64 `json:"zoom"`
	Transparency   float64 `json:"transparency"`
	Brush          int     `json:"brush"`
	ViewportWidth  int     `json:"viewport_width"`
	ViewportHeight int     `json:"viewport_height"`
}

// ResizeRequest 视口尺寸变化
type ResizeRequest struct {
	Width  int `json:"width" binding:"required,gt=0"`
	Height int `json:"height" binding:"required,gt=0"`
}

// PointerRequest 指针移动，Drag 表示主键按下
type PointerRequest struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Drag bool    `json:"drag"`
}

// ScrollRequest 滚轮事件，Notches 正数为向上
type ScrollRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Notches int     `json:"notches" binding:"required"`
}

// SliderRequest 透明度滑块 (0-100)
type SliderRequest struct {
	Value int `json:"value"`
}

// FrameResult 渲染结果
type FrameResult struct {
	Stem   string      `json:"stem"`
	Label  string      `json:"label"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	State  EditorState `json:"state"`
	Image  string      `json:"image"` // base64编码的PNG数据
}

// FrameResponse 渲染响应
type FrameResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *FrameResult `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
