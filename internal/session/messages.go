// 包 session：一条 websocket 连接对应一个地图会话
package session

import (
	"github.com/paulmach/orb"

	"popmap/internal/charts"
	"popmap/internal/population"
	"popmap/internal/view"
)

// 客户端消息类型
const (
	MsgViewport   = "viewport"
	MsgHover      = "hover"
	MsgLeave      = "leave"
	MsgClick      = "click"
	MsgBackground = "background"
	MsgReset      = "reset"
	MsgSelect     = "select"
	MsgSearch     = "search"
	MsgWheel      = "wheel"
	MsgPan        = "pan"
)

// 服务端消息类型
const (
	OutLayer     = "layer"
	OutFrame     = "frame"
	OutTooltip   = "tooltip"
	OutSelection = "selection"
	OutSearch    = "search"
	OutLoading   = "loading"
	OutError     = "error"
	OutHello     = "hello"
)

// 文档注释：客户端消息
// 约束：Key 为 layer 消息中的区域键，优先于 Code；Code 为几何编码原值（字符串或数字）；Point 为画布坐标，hover/click/wheel 在 Key 与 Code 缺省时按 Point 命中判定。
// 没有编码的区域只能通过 Key 或 Point 寻址。
type clientMessage struct {
	Type      string        `json:"type"`
	Key       string        `json:"key,omitempty"`
	Code      any           `json:"code,omitempty"`
	Point     *orb.Point    `json:"point,omitempty"`
	Width     float64       `json:"width,omitempty"`
	Height    float64       `json:"height,omitempty"`
	Surface   *view.Surface `json:"surface,omitempty"`
	Scroll    *view.Scroll  `json:"scroll,omitempty"`
	ID        *string       `json:"id,omitempty"`
	Query     string        `json:"q,omitempty"`
	DeltaY    float64       `json:"delta_y,omitempty"`
	DeltaMode int           `json:"delta_mode,omitempty"`
	DX        float64       `json:"dx,omitempty"`
	DY        float64       `json:"dy,omitempty"`
}

type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// regionPayload：一个区域的路径数据
type regionPayload struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	RawCode string `json:"raw_code"`
	Name    string `json:"name"`
	Path    string `json:"path"`
}

type layerPayload struct {
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Insert   []regionPayload   `json:"insert"`
	Update   []regionPayload   `json:"update"`
	Remove   []string          `json:"remove"`
	Boundary string            `json:"boundary"`
	Style    map[string]string `json:"style"`
	Palette  map[string]string `json:"palette"`
}

type selectionPayload struct {
	Origin    string                  `json:"origin"`
	Selected  *population.Departement `json:"selected"`
	Displayed population.Departement  `json:"displayed"`
	Charts    charts.Bundle           `json:"charts"`
}

type helloPayload struct {
	Session string `json:"session"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}
