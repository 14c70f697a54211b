package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"popmap/internal/anim"
	"popmap/internal/carto"
	"popmap/internal/charts"
	"popmap/internal/logger"
	"popmap/internal/metrics"
	"popmap/internal/population"
	"popmap/internal/view"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = 25 * time.Second
	maxMessage   = 64 << 10
	inboundQueue = 64
)

// 文档注释：会话入口（websocket 升级）
// 约束：Origin 为空、与请求同主机或等于 AllowedOrigin 时允许升级；FrameInterval 为动画期间的推帧间隔，IdleInterval 为空闲时的轮询间隔（等待数据加载）。
type Handler struct {
	holder *population.Holder
	atlas  *carto.Atlas
	up     websocket.Upgrader

	AllowedOrigin string
	FrameInterval time.Duration
	IdleInterval  time.Duration
}

func NewHandler(h *population.Holder, a *carto.Atlas, allowedOrigin string) *Handler {
	hd := &Handler{
		holder:        h,
		atlas:         a,
		AllowedOrigin: allowedOrigin,
		FrameInterval: time.Second / 60,
		IdleInterval:  500 * time.Millisecond,
	}
	hd.up = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 16384, CheckOrigin: hd.checkOrigin}
	return hd
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	if o == "" || o == h.AllowedOrigin {
		return true
	}
	u, err := url.Parse(o)
	return err == nil && u.Host == r.Host
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		logger.Component("session").Warn("ws_upgrade_error", "err", err)
		return
	}
	s := newSession(conn, h)
	s.run(r.Context())
}

type inbound struct {
	msg clientMessage
	err error
}

// 文档注释：单个地图会话
// 背景：选中、缩放动画、悬停与图表数据都属于会话私有状态；读 goroutine 只负责解码并转交，其余全部在 run 所在的 goroutine 中执行。
// 约束：统计快照在会话内取定后不再替换，保证选中指针与列表元素的身份一致；写连接只发生在 run goroutine。
type Session struct {
	ID string

	conn   *websocket.Conn
	holder *population.Holder
	atlas  *carto.Atlas
	log    *slog.Logger

	ds      *population.Dataset
	sel     *view.Selection
	sched   *anim.Scheduler
	ctrl    *view.Controller
	layer   *carto.Layer
	regions map[string]regionPayload
	keyed   map[string]*carto.Region
	tooltip *view.Tooltip

	frameEvery time.Duration
	idleEvery  time.Duration
	fast       bool
	loading    bool
	err        error
	unsub      func()
}

func newSession(conn *websocket.Conn, h *Handler) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		conn:       conn,
		holder:     h.holder,
		atlas:      h.atlas,
		sel:        view.NewSelection(),
		sched:      anim.NewScheduler(anim.SystemClock),
		regions:    map[string]regionPayload{},
		keyed:      map[string]*carto.Region{},
		frameEvery: h.FrameInterval,
		idleEvery:  h.IdleInterval,
	}
	s.log = logger.Component("session").With("session", s.ID)
	s.sched.OnSupersede = func(string, string) { metrics.AnimationsSupersededTotal.Inc() }
	s.ctrl = view.NewController(s.sel, s.sched)
	s.unsub = s.sel.Subscribe(func(ch view.Change) {
		metrics.SelectionChangesTotal.WithLabelValues(string(ch.Origin)).Inc()
		s.sendSelection(string(ch.Origin), ch.Next)
	})
	return s
}

func (s *Session) run(ctx context.Context) {
	t0 := time.Now()
	metrics.SessionsActive.Inc()
	s.log.Info("session_open")
	done := make(chan struct{})
	in := make(chan inbound, inboundQueue)
	defer func() {
		close(done)
		s.unsub()
		s.ctrl.Close()
		_ = s.conn.Close()
		metrics.SessionsActive.Dec()
		s.log.Info("session_close", "ms", time.Since(t0).Milliseconds(), "err", s.err)
	}()
	go s.readLoop(in, done)

	s.send(OutHello, helloPayload{Session: s.ID})
	s.refreshData()

	tk := time.NewTicker(s.idleEvery)
	defer tk.Stop()
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()

	for s.err == nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if ev.err != nil {
				s.send(OutError, errorPayload{Detail: "invalid message: " + ev.err.Error()})
				break
			}
			s.handle(ev.msg)
			s.flushFrame()
		case <-tk.C:
			if s.ds == nil {
				s.refreshData()
			}
			s.flushFrame()
		case <-ping.C:
			s.err = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		}
		s.pace(tk)
	}
}

// readLoop：读 goroutine，连接关闭或读错误时关闭 in
func (s *Session) readLoop(in chan<- inbound, done <-chan struct{}) {
	defer close(in)
	s.conn.SetReadLimit(maxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { return s.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("ws_read_error", "err", err)
			}
			return
		}
		var ev inbound
		ev.err = json.Unmarshal(data, &ev.msg)
		select {
		case in <- ev:
		case <-done:
			return
		}
	}
}

// pace：动画进行中按帧间隔推进，否则降到空闲间隔
func (s *Session) pace(tk *time.Ticker) {
	fast := !s.sched.Idle()
	if fast == s.fast {
		return
	}
	s.fast = fast
	if fast {
		tk.Reset(s.frameEvery)
	} else {
		tk.Reset(s.idleEvery)
	}
}

// refreshData：取统计快照；仍未就绪时只发送一次 loading
func (s *Session) refreshData() {
	ds := s.holder.Current()
	if ds == nil {
		if !s.loading {
			s.loading = true
			s.sendLoading()
		}
		return
	}
	s.ds = ds
	s.loading = false
	s.ctrl.SetData(ds)
	s.sendSelection("init", s.sel.Get())
}

func (s *Session) handle(m clientMessage) {
	label := m.Type
	switch m.Type {
	case MsgViewport, MsgHover, MsgLeave, MsgClick, MsgBackground, MsgReset, MsgSelect, MsgSearch, MsgWheel, MsgPan:
	default:
		label = "unknown"
	}
	metrics.SessionEventsTotal.WithLabelValues(label).Inc()
	if label == "unknown" {
		s.send(OutError, errorPayload{Detail: "unknown message type: " + m.Type})
		return
	}

	switch m.Type {
	case MsgViewport:
		s.onViewport(m)
		return
	case MsgBackground:
		s.ctrl.Background()
		return
	case MsgReset:
		s.ctrl.Reset()
		return
	case MsgPan:
		s.ctrl.Pan(m.DX, m.DY)
		return
	case MsgWheel:
		if m.Point == nil {
			s.send(OutError, errorPayload{Detail: "wheel requires point"})
			return
		}
		s.ctrl.Wheel(*m.Point, m.DeltaY, m.DeltaMode)
		return
	case MsgLeave:
		if s.ctrl.Leave(codeOf(m.Code)) {
			s.tooltip = nil
			s.send(OutTooltip, (*view.Tooltip)(nil))
		}
		return
	}

	if s.ds == nil {
		s.sendLoading()
		return
	}
	switch m.Type {
	case MsgHover:
		var tt *view.Tooltip
		if m.Key != "" {
			tt = s.ctrl.HoverRegion(s.keyed[m.Key])
		} else if m.Code != nil {
			tt = s.ctrl.Hover(codeOf(m.Code))
		} else if m.Point != nil {
			tt = s.ctrl.HoverAt(*m.Point)
		}
		if tt != s.tooltip {
			s.tooltip = tt
			s.send(OutTooltip, tt)
		}
	case MsgClick:
		if m.Key != "" {
			s.ctrl.ClickRegion(s.keyed[m.Key])
		} else if m.Code != nil {
			s.ctrl.Click(codeOf(m.Code))
		} else if m.Point != nil {
			s.ctrl.ClickAt(*m.Point)
		}
	case MsgSelect:
		id := ""
		if m.ID != nil {
			id = *m.ID
		}
		s.sel.Set(population.Resolve(s.ds.Departements, id), view.OriginSearch)
	case MsgSearch:
		s.send(OutSearch, population.Search(s.ds.Departements, m.Query))
	}
}

// codeOf：JSON 解码后的编码原值（字符串或 float64）转为归一前的字符串
func codeOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	}
	return population.NormalizeCode(v)
}

func (s *Session) onViewport(m clientMessage) {
	if s.atlas == nil {
		s.sendLoading()
		return
	}
	vp := carto.Viewport{Width: m.Width, Height: m.Height}
	if !vp.Valid() {
		s.send(OutError, errorPayload{Detail: "invalid viewport"})
		return
	}
	if m.Surface != nil {
		var sc view.Scroll
		if m.Scroll != nil {
			sc = *m.Scroll
		}
		s.ctrl.SetSurface(*m.Surface, sc)
	}
	l := s.atlas.Layer(vp)
	if l == s.layer {
		return
	}
	s.layer = l
	s.ctrl.SetLayer(l)
	s.sendLayer(l)
}

// sendLayer：按区域键协调，只推送新增、路径变化与移除的区域
func (s *Session) sendLayer(l *carto.Layer) {
	next := make(map[string]regionPayload, len(l.Regions))
	keyed := make(map[string]*carto.Region, len(l.Regions))
	for i, r := range l.Regions {
		key := r.Code
		if population.IsNoMatch(key) {
			key = "~" + r.RawCode + "|" + r.Name
		}
		if _, dup := next[key]; dup {
			key += "#" + strconv.Itoa(i)
		}
		next[key] = regionPayload{Key: key, Code: r.Code, RawCode: r.RawCode, Name: r.Name, Path: r.Path}
		keyed[key] = r
	}
	d := view.Reconcile(s.regions, next, func(a, b regionPayload) bool { return a == b })
	s.regions, s.keyed = next, keyed
	s.send(OutLayer, layerPayload{
		Width:    l.Viewport.Width,
		Height:   l.Viewport.Height,
		Insert:   d.Insert,
		Update:   d.Update,
		Remove:   d.Remove,
		Boundary: l.Boundary,
		Style:    carto.BoundaryStyle,
		Palette:  view.Palette,
	})
}

func (s *Session) sendSelection(origin string, dep *population.Departement) {
	if s.ds == nil {
		return
	}
	displayed := population.Displayed(dep, s.ds.Departements)
	s.send(OutSelection, selectionPayload{
		Origin:    origin,
		Selected:  dep,
		Displayed: displayed,
		Charts:    charts.All(&displayed),
	})
}

func (s *Session) sendLoading() {
	s.send(OutLoading, map[string]bool{"stats": s.ds != nil, "geometry": s.atlas != nil})
}

func (s *Session) flushFrame() {
	if fr, changed := s.ctrl.Tick(); changed {
		s.send(OutFrame, fr)
	}
}

func (s *Session) send(typ string, data any) {
	if s.err != nil {
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(serverMessage{Type: typ, Data: data}); err != nil {
		s.err = err
		s.log.Debug("ws_write_error", "type", typ, "err", err)
	}
}
