package anim

import (
	"sort"
	"time"
)

// Clock：时间源，测试中替换为手动时钟
type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock：真实时钟
var SystemClock Clock = systemClock{}

// 文档注释：一次动画请求
// 约束：Target/Property 组成动画槽位；Interpolate 为空时使用 Lerp；Easing 为空时使用 CubicInOut；Duration ≤ 0 时下一次 Tick 直接给出终值。
type Request struct {
	Target      string
	Property    string
	From        []float64
	To          []float64
	Duration    time.Duration
	Easing      Easing
	Interpolate func(from, to []float64) Interpolator
}

// Frame：某槽位在某时刻的取值；Done 为 true 的帧每个动画只出现一次
type Frame struct {
	Target   string
	Property string
	Value    []float64
	Done     bool
}

type slot struct{ target, property string }

type running struct {
	req    Request
	start  time.Time
	interp Interpolator
	ease   Easing
}

// 文档注释：动画调度器
// 背景：原先的做法是命令式地在元素上挂过渡，新过渡与旧过渡互相覆盖的结果依赖时序；这里改为声明式请求，由单一拥有者按帧推进。
// 约束：同一槽位最后写入优先，不排队；非并发安全，只能由会话所在的 goroutine 调用。
type Scheduler struct {
	clock   Clock
	running map[slot]*running
	// OnSupersede：新请求替换未完成动画时回调（用于计数）
	OnSupersede func(target, property string)
}

func NewScheduler(c Clock) *Scheduler {
	if c == nil {
		c = SystemClock
	}
	return &Scheduler{clock: c, running: make(map[slot]*running)}
}

// Start：登记动画；返回是否替换了同槽位上未完成的动画
func (s *Scheduler) Start(req Request) bool {
	k := slot{req.Target, req.Property}
	_, superseded := s.running[k]
	if superseded && s.OnSupersede != nil {
		s.OnSupersede(req.Target, req.Property)
	}
	mk := req.Interpolate
	if mk == nil {
		mk = Lerp
	}
	ease := req.Easing
	if ease == nil {
		ease = CubicInOut
	}
	s.running[k] = &running{req: req, start: s.clock.Now(), interp: mk(req.From, req.To), ease: ease}
	return superseded
}

// Cancel：丢弃槽位上的动画，不产生终帧；返回是否存在
func (s *Scheduler) Cancel(target, property string) bool {
	k := slot{target, property}
	_, ok := s.running[k]
	delete(s.running, k)
	return ok
}

func (s *Scheduler) Len() int { return len(s.running) }

// Idle：没有进行中的动画，调用方可停止帧定时器
func (s *Scheduler) Idle() bool { return len(s.running) == 0 }

// Tick：推进到当前时刻；已结束的动画给出终帧后移除。帧按 Target、Property 排序。
func (s *Scheduler) Tick() []Frame {
	if len(s.running) == 0 {
		return nil
	}
	now := s.clock.Now()
	frames := make([]Frame, 0, len(s.running))
	for k, r := range s.running {
		t := 1.0
		if d := r.req.Duration; d > 0 {
			t = float64(now.Sub(r.start)) / float64(d)
		}
		if t < 0 {
			t = 0
		}
		done := t >= 1
		var v []float64
		if done {
			v = r.interp(1)
			delete(s.running, k)
		} else {
			v = r.interp(r.ease(t))
		}
		frames = append(frames, Frame{Target: k.target, Property: k.property, Value: v, Done: done})
	}
	sort.Slice(frames, func(i, j int) bool {
		if frames[i].Target != frames[j].Target {
			return frames[i].Target < frames[j].Target
		}
		return frames[i].Property < frames[j].Property
	})
	return frames
}
