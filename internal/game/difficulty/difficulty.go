// Package difficulty 对局难度曲线：按已进行时间返回当前阶段参数
package difficulty

import (
	"math/rand/v2"
	"time"
)

// Horizon 难度曲线总时长，之后保持最高难度
const Horizon = 340 * time.Second

// Range 闭区间 [Min, Max]
type Range struct {
	Min float64
	Max float64
}

// Uniform 在区间内均匀取值
func (r Range) Uniform(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Phase 难度阶段
type Phase struct {
	SpawnInterval Range   // 生成间隔（毫秒）
	SpeedRange    Range   // 基础速度（单位/参考帧）
	Variety       float64 // 速度随机幅度
	MaxAlive      int     // 单个玩家同时存活目标上限
}

// SpawnCooldown 在生成间隔内随机取一个冷却时长
func (p Phase) SpawnCooldown(rng *rand.Rand) time.Duration {
	return time.Duration(p.SpawnInterval.Uniform(rng) * float64(time.Millisecond))
}

// Speed 随机生成目标速度：基础速度乘以 1 + (rand-0.5)*Variety
func (p Phase) Speed(rng *rand.Rand) float64 {
	base := p.SpeedRange.Uniform(rng)
	return base * (1 + (rng.Float64()-0.5)*p.Variety)
}

type band struct {
	until float64 // 进度上界（不含）
	phase Phase
}

var bands = []band{
	{0.15, Phase{SpawnInterval: Range{2000, 2500}, SpeedRange: Range{0.3, 0.5}, Variety: 0.2, MaxAlive: 5}},
	{0.35, Phase{SpawnInterval: Range{1200, 1800}, SpeedRange: Range{0.5, 0.9}, Variety: 0.4, MaxAlive: 6}},
	{0.6, Phase{SpawnInterval: Range{800, 1300}, SpeedRange: Range{0.8, 1.4}, Variety: 0.6, MaxAlive: 7}},
	{0.85, Phase{SpawnInterval: Range{600, 1000}, SpeedRange: Range{1.2, 2.0}, Variety: 0.8, MaxAlive: 7}},
}

var finalPhase = Phase{SpawnInterval: Range{400, 700}, SpeedRange: Range{1.8, 3.5}, Variety: 1.0, MaxAlive: 7}

// At 返回已进行 elapsed 时的难度阶段（按整秒计算进度）
func At(elapsed time.Duration) Phase {
	if elapsed < 0 {
		elapsed = 0
	}
	secs := elapsed.Truncate(time.Second)
	progress := float64(secs) / float64(Horizon)
	for _, b := range bands {
		if progress < b.until {
			return b.phase
		}
	}
	return finalPhase
}

// Index 返回阶段序号 0-4，房间在阶段切换时记录日志
func Index(elapsed time.Duration) int {
	p := At(elapsed)
	for i, b := range bands {
		if b.phase == p {
			return i
		}
	}
	return len(bands)
}
