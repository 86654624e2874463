package aggregate

import (
	"sync"

	"go-flight-board/internal/model"
)

// fetchResult 为单个方向的抓取结果。
type fetchResult struct {
	raws []any
	err  error
	dur  string
}

// JoinBuffer 收集两个方向的抓取结果，供汇合点之后统一处理。
type JoinBuffer struct {
	mu   sync.Mutex
	data map[model.Direction]fetchResult
}

func NewJoinBuffer() *JoinBuffer {
	return &JoinBuffer{data: make(map[model.Direction]fetchResult)}
}

func (b *JoinBuffer) Put(dir model.Direction, raws []any, err error, dur string) {
	b.mu.Lock()
	b.data[dir] = fetchResult{raws: raws, err: err, dur: dur}
	b.mu.Unlock()
}

// Raws 返回某方向的原始记录；未抓取或失败时为 nil。
func (b *JoinBuffer) Raws(dir model.Direction) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[dir].raws
}

// Err 按固定方向顺序返回第一个错误，保证并发模式下结果确定。
func (b *JoinBuffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range model.Directions() {
		if r, ok := b.data[d]; ok && r.err != nil {
			return r.err
		}
	}
	return nil
}

func (b *JoinBuffer) duration(dir model.Direction) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[dir].dur
}
