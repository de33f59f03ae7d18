package extract

// Strategy 是回退链中的一环：从输入中取一个候选值，取不到返回 false。
type Strategy[T any] struct {
	Name string
	Run  func(T) (string, bool)
}

// Attempt 记录一次策略尝试（用于 debug 日志解释“最终值来自哪里”）。
type Attempt struct {
	Strategy string
	OK       bool
}

// FirstOf 按顺序执行策略，返回第一个成功的值与尝试轨迹。
// 全部失败时 ok=false，轨迹仍然完整。
func FirstOf[T any](in T, strategies []Strategy[T]) (value string, used string, trace []Attempt, ok bool) {
	trace = make([]Attempt, 0, len(strategies))
	for _, s := range strategies {
		v, hit := s.Run(in)
		trace = append(trace, Attempt{Strategy: s.Name, OK: hit})
		if hit {
			return v, s.Name, trace, true
		}
	}
	return "", "", trace, false
}
