package room

import (
	"math"

	"github.com/palemoky/word-duel/internal/protocol"
)

// 竞技场几何参数（与前端画布一致）
const (
	ArenaCenterX = 300.0
	ArenaCenterY = 300.0
	SpawnRadius  = 600.0/2 - 40 // 生成圆半径
	ImpactRadius = 24.0         // 抵达中心判定半径

	// deltaEpsilon 位置变化超过该值才下发增量
	deltaEpsilon = 1.0
	// referenceFPS 速度单位为“每参考帧移动距离”
	referenceFPS = 60.0
)

// Target 玩家私有目标池中的一个目标
type Target struct {
	ID      int
	Word    string
	X, Y    float64
	UX, UY  float64 // 指向中心的单位向量
	Speed   float64
	Alive   bool
	OwnerID string

	// 增量同步记录，只在服务端使用
	sent      bool
	lastSentX float64
	lastSentY float64
	deadSent  bool
}

// View 对外视图
func (t *Target) View() protocol.TargetInfo {
	return protocol.TargetInfo{
		ID:      t.ID,
		Word:    t.Word,
		X:       t.X,
		Y:       t.Y,
		UX:      t.UX,
		UY:      t.UY,
		Speed:   t.Speed,
		Alive:   t.Alive,
		OwnerID: t.OwnerID,
	}
}

// DistanceToCenter 到竞技场中心的距离
func (t *Target) DistanceToCenter() float64 {
	return math.Hypot(t.X-ArenaCenterX, t.Y-ArenaCenterY)
}

// Pool 单个玩家的目标池；ID 从 1 开始单调递增，目标只标记死亡不删除
type Pool struct {
	targets []*Target
}

// Spawn 在生成圆上 angle 处创建一个朝向中心移动的目标
func (p *Pool) Spawn(word string, angle, speed float64, ownerID string) *Target {
	x := ArenaCenterX + math.Cos(angle)*SpawnRadius
	y := ArenaCenterY + math.Sin(angle)*SpawnRadius
	return p.Insert(word, x, y, speed, ownerID)
}

// Insert 在任意位置创建目标，方向指向中心
func (p *Pool) Insert(word string, x, y, speed float64, ownerID string) *Target {
	dx, dy := ArenaCenterX-x, ArenaCenterY-y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	t := &Target{
		ID:      len(p.targets) + 1,
		Word:    word,
		X:       x,
		Y:       y,
		UX:      dx / dist,
		UY:      dy / dist,
		Speed:   speed,
		Alive:   true,
		OwnerID: ownerID,
	}
	p.targets = append(p.targets, t)
	return t
}

// Get 按 ID 查找目标
func (p *Pool) Get(id int) *Target {
	if id < 1 || id > len(p.targets) {
		return nil
	}
	return p.targets[id-1]
}

// Len 目标总数（含已死亡）
func (p *Pool) Len() int {
	return len(p.targets)
}

// NextID 下一个目标 ID
func (p *Pool) NextID() int {
	return len(p.targets) + 1
}

// AliveCount 存活目标数
func (p *Pool) AliveCount() int {
	n := 0
	for _, t := range p.targets {
		if t.Alive {
			n++
		}
	}
	return n
}

// Rebind 重连后更新目标归属
func (p *Pool) Rebind(ownerID string) {
	for _, t := range p.targets {
		t.OwnerID = ownerID
	}
}

// Advance 推进 dt 秒，返回本帧增量和抵达中心的目标 ID
func (p *Pool) Advance(dtSeconds float64) (changed []protocol.TargetUpdate, reached []int) {
	step := dtSeconds * referenceFPS
	for _, t := range p.targets {
		if !t.Alive {
			if !t.deadSent {
				changed = append(changed, protocol.TargetUpdate{ID: t.ID, Alive: false})
				t.deadSent = true
			}
			continue
		}

		t.X += t.UX * t.Speed * step
		t.Y += t.UY * t.Speed * step

		if t.DistanceToCenter() <= ImpactRadius {
			t.Alive = false
			reached = append(reached, t.ID)
			changed = append(changed, positionUpdate(t, false))
			t.markSent()
			t.deadSent = true
			continue
		}

		if !t.sent || math.Hypot(t.X-t.lastSentX, t.Y-t.lastSentY) > deltaEpsilon {
			changed = append(changed, positionUpdate(t, true))
			t.markSent()
		}
	}
	return changed, reached
}

func (t *Target) markSent() {
	t.sent = true
	t.lastSentX = t.X
	t.lastSentY = t.Y
}

func positionUpdate(t *Target, alive bool) protocol.TargetUpdate {
	x, y := t.X, t.Y
	return protocol.TargetUpdate{ID: t.ID, X: &x, Y: &y, Alive: alive}
}

// View 目标池对外视图
func (p *Pool) View() []protocol.TargetInfo {
	out := make([]protocol.TargetInfo, len(p.targets))
	for i, t := range p.targets {
		out[i] = t.View()
	}
	return out
}
