package service

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/model"
	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
)

const (
	ButtonPrev  = "prev"
	ButtonNext  = "next"
	ButtonClean = "clean"
	ButtonReset = "reset"
)

// Frame 一次渲染的结果
type Frame struct {
	Image image.Image
	Stem  string
	Label string
	State model.EditorState
}

// Editor 掩码编辑器，持有当前条目的全部图层和视图状态。
// 所有方法串行执行，等价于单一事件分发线程。
type Editor struct {
	mu sync.Mutex

	dataset    *Dataset
	compositor *Compositor
	maskTint   color.RGBA
	brushTint  color.RGBA
	brushStep  int
	minBrush   int
	saveOnPrev bool

	state model.EditorState
	stem  string
	image *image.RGBA
	mask  *image.Gray
	brush *image.Gray

	onChange func(model.EditorState)
}

// NewEditor 创建编辑器并加载第一个条目
func NewEditor(ds *Dataset, cfg config.EditorConfig) (*Editor, error) {
	compositor, err := NewCompositor(cfg.Resample)
	if err != nil {
		return nil, err
	}
	maskTint, err := ParseHexColor(cfg.MaskColor)
	if err != nil {
		return nil, fmt.Errorf("mask color: %w", err)
	}
	brushTint, err := ParseHexColor(cfg.BrushColor)
	if err != nil {
		return nil, fmt.Errorf("brush color: %w", err)
	}

	e := &Editor{
		dataset:    ds,
		compositor: compositor,
		maskTint:   maskTint,
		brushTint:  brushTint,
		brushStep:  cfg.BrushStep,
		minBrush:   max(1, cfg.MinBrush),
		saveOnPrev: cfg.SaveOnPrev,
		state: model.EditorState{
			Total:          ds.Len(),
			Zoom:           1,
			Transparency:   clampUnit(cfg.Transparency),
			ViewportWidth:  cfg.ViewportWidth,
			ViewportHeight: cfg.ViewportHeight,
		},
	}
	e.state.Brush = max(e.minBrush, cfg.Brush)

	if err := e.loadEntry(0); err != nil {
		return nil, err
	}
	return e, nil
}

// OnStateChange 注册状态回调，仅在条目加载（导航、重置、恢复）时触发；
// 高频的滚轮、滑块和视口事件不触发，其最新值随下一次加载一并上报
func (e *Editor) OnStateChange(fn func(model.EditorState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Restore 恢复之前保存的视图状态并加载对应条目
func (e *Editor) Restore(st model.EditorState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st.Transparency >= 0 && st.Transparency <= 1 {
		e.state.Transparency = st.Transparency
	}
	if st.Brush > 0 {
		e.state.Brush = max(e.minBrush, st.Brush)
	}
	index := st.Index
	if index < 0 || index >= e.dataset.Len() {
		index = 0
	}
	return e.loadEntry(index)
}

// State 返回当前视图状态的副本
func (e *Editor) State() model.EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stem 返回当前条目名
func (e *Editor) Stem() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stem
}

// Mask 返回当前掩码的副本
func (e *Editor) Mask() *image.Gray {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CloneGray(e.mask)
}

// Frame 使用空画笔层渲染当前帧
func (e *Editor) Frame() *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render(e.brush)
}

// OnResize 视口尺寸变化
func (e *Editor) OnResize(width, height int) (*Frame, error) {
	return e.Resize(width, height)
}

// OnPointerMove 指针悬停，只更新画笔轮廓
func (e *Editor) OnPointerMove(x, y float64) *Frame {
	return e.Paint(x, y, false)
}

// OnPointerDrag 主键拖动，擦除掩码
func (e *Editor) OnPointerDrag(x, y float64) *Frame {
	return e.Paint(x, y, true)
}

// OnScroll 滚轮调整画笔半径，并在指针位置刷新轮廓
func (e *Editor) OnScroll(x, y float64, notches int) *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adjustBrush(notches)
	return e.paint(x, y, false)
}

// OnSliderChange 透明度滑块 (0-100)
func (e *Editor) OnSliderChange(percent int) *Frame {
	return e.SetTransparency(percent)
}

// OnButton 处理 Prev/Next/Clean/Reset 按钮
func (e *Editor) OnButton(name string) (*Frame, error) {
	switch strings.ToLower(name) {
	case ButtonPrev:
		return e.Prev()
	case ButtonNext:
		return e.Next()
	case ButtonClean:
		return e.Clean(), nil
	case ButtonReset:
		return e.Reset()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownButton, name)
	}
}

// Resize 记录视口尺寸并重新计算缩放
func (e *Editor) Resize(width, height int) (*Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	e.state.ViewportWidth = width
	e.state.ViewportHeight = height
	e.updateZoom()
	return e.render(e.brush), nil
}

// Paint 在指针位置绘制画笔；commit 为 true 时擦除掩码中的整个圆
func (e *Editor) Paint(x, y float64, commit bool) *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paint(x, y, commit)
}

// AdjustBrush 按滚轮格数调整画笔半径
func (e *Editor) AdjustBrush(notches int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adjustBrush(notches)
	return e.state.Brush
}

// SetTransparency 设置掩码叠加透明度
func (e *Editor) SetTransparency(percent int) *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	percent = min(100, max(0, percent))
	e.state.Transparency = float64(percent) / 100
	return e.render(e.brush)
}

// Clean 清空掩码
func (e *Editor) Clean() *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mask = image.NewGray(e.mask.Bounds())
	utils.Logger.Debug("mask cleaned", zap.String("stem", e.stem))
	return e.render(e.brush)
}

// Reset 从磁盘重新加载当前条目，丢弃未保存的修改
func (e *Editor) Reset() (*Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadEntry(e.state.Index); err != nil {
		return nil, err
	}
	return e.render(e.brush), nil
}

// Next 保存当前掩码并前进到下一个条目；最后一个条目只保存不前进
func (e *Editor) Next() (*Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dataset.Save(e.stem, e.mask); err != nil {
		return nil, err
	}
	if e.state.Index < e.dataset.Len()-1 {
		if err := e.loadEntry(e.state.Index + 1); err != nil {
			return nil, err
		}
	}
	return e.render(e.brush), nil
}

// Prev 后退到上一个条目，默认丢弃当前条目未保存的修改
func (e *Editor) Prev() (*Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Index == 0 {
		return e.render(e.brush), nil
	}
	if e.saveOnPrev {
		if err := e.dataset.Save(e.stem, e.mask); err != nil {
			return nil, err
		}
	}
	if err := e.loadEntry(e.state.Index - 1); err != nil {
		return nil, err
	}
	return e.render(e.brush), nil
}

func (e *Editor) paint(x, y float64, commit bool) *Frame {
	ix, iy := x/e.state.Zoom, y/e.state.Zoom
	if commit {
		FillDisk(e.mask, ix, iy, e.state.Brush, 0)
	}
	preview := CloneGray(e.brush)
	DrawRing(preview, ix, iy, e.state.Brush, 0xff)
	return e.render(preview)
}

func (e *Editor) adjustBrush(notches int) {
	e.state.Brush = max(e.minBrush, e.state.Brush+notches*e.brushStep)
}

// loadEntry 读取条目；失败时保持原有状态不变
func (e *Editor) loadEntry(index int) error {
	stem := e.dataset.Stems[index]
	img, mask, err := e.dataset.Load(stem)
	if err != nil {
		utils.Logger.Error("failed to load entry",
			zap.String("stem", stem),
			zap.Int("index", index),
			zap.Error(err))
		return err
	}

	e.stem = stem
	e.image = img
	e.mask = mask
	e.brush = image.NewGray(mask.Bounds())
	e.state.Index = index
	e.updateZoom()
	e.changed()

	utils.Logger.Info("entry loaded",
		zap.String("stem", stem),
		zap.String("label", e.label()),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return nil
}

func (e *Editor) updateZoom() {
	size := e.image.Bounds().Size()
	e.state.Zoom = CalculateZoom(e.state.ViewportWidth, e.state.ViewportHeight, size.X, size.Y)
}

func (e *Editor) render(brush *image.Gray) *Frame {
	layers := Layers{
		Image:     e.image,
		Mask:      e.mask,
		Brush:     brush,
		MaskTint:  e.maskTint,
		BrushTint: e.brushTint,
	}
	return &Frame{
		Image: e.compositor.Compose(layers, e.state.Transparency, e.state.Zoom),
		Stem:  e.stem,
		Label: e.label(),
		State: e.state,
	}
}

func (e *Editor) label() string {
	return fmt.Sprintf("%d/%d", e.state.Index+1, e.dataset.Len())
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange(e.state)
	}
}

func clampUnit(v float64) float64 {
	return min(1, max(0, v))
}
